package version

// version is replaced at build time:
//
//	go build -ldflags "-X teahouse/pkg/version.version=1.2.3"
var version = "dev"

// Version reports the build version.
func Version() string {
	return version
}
