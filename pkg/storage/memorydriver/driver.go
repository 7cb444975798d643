package memorydriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
)

// enqueueTimeout bounds how long a statement waits for the store goroutine.
const enqueueTimeout = 2 * time.Second

// ErrClosed is returned by statements issued after the store has been shut down.
var ErrClosed = errors.New("memory store is closed")

// teaRecord keeps the raw stored representation.
type teaRecord struct {
	ID    int64
	Name  string
	Price float64
}

type storeAction int

const (
	actionNoop storeAction = iota
	actionInsertTea
	actionListTeas
	actionSelectTea
	actionUpdateTea
	actionDeleteTea
)

func (a storeAction) String() string {
	switch a {
	case actionNoop:
		return "noop"
	case actionInsertTea:
		return "insertTea"
	case actionListTeas:
		return "listTeas"
	case actionSelectTea:
		return "selectTea"
	case actionUpdateTea:
		return "updateTea"
	case actionDeleteTea:
		return "deleteTea"
	default:
		return fmt.Sprintf("storeAction(%d)", int(a))
	}
}

// storeCommand models every operation executed against the in-memory store.
type storeCommand struct {
	action storeAction
	tea    teaRecord
	id     int64
	reply  chan storeResult
}

// storeResult transfers the new identifier, affected row count, matching records or an error.
type storeResult struct {
	id       int64
	affected int64
	teas     []teaRecord
	err      error
}

// store keeps the ordered tea sequence guarded by a dedicated goroutine.
// counter only grows, so ids are never reused after a delete.
type store struct {
	commands  chan storeCommand
	closed    chan struct{}
	closeOnce sync.Once
	teas      []teaRecord
	counter   int64
}

func newStore() *store {
	s := &store{
		commands: make(chan storeCommand, 32),
		closed:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// loop serializes every mutation and read so the state needs no mutex.
func (s *store) loop() {
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- s.apply(cmd)
		case <-s.closed:
			return
		}
	}
}

func (s *store) apply(cmd storeCommand) storeResult {
	switch cmd.action {
	case actionNoop:
		return storeResult{}
	case actionInsertTea:
		s.counter++
		cmd.tea.ID = s.counter
		s.teas = append(s.teas, cmd.tea)
		return storeResult{id: cmd.tea.ID, affected: 1}
	case actionListTeas:
		return storeResult{teas: cloneTeas(s.teas)}
	case actionSelectTea:
		if i := s.indexOf(cmd.id); i >= 0 {
			return storeResult{teas: []teaRecord{s.teas[i]}}
		}
		return storeResult{}
	case actionUpdateTea:
		i := s.indexOf(cmd.tea.ID)
		if i < 0 {
			return storeResult{}
		}
		s.teas[i].Name = cmd.tea.Name
		s.teas[i].Price = cmd.tea.Price
		return storeResult{affected: 1, teas: []teaRecord{s.teas[i]}}
	case actionDeleteTea:
		i := s.indexOf(cmd.id)
		if i < 0 {
			return storeResult{}
		}
		s.teas = append(s.teas[:i], s.teas[i+1:]...)
		return storeResult{affected: 1}
	default:
		return storeResult{err: fmt.Errorf("unsupported action %s", cmd.action)}
	}
}

// indexOf performs the linear search used by every id-addressed statement.
func (s *store) indexOf(id int64) int {
	for i := range s.teas {
		if s.teas[i].ID == id {
			return i
		}
	}
	return -1
}

// submit sends the command and waits for the loop to answer.
func (s *store) submit(ctx context.Context, cmd storeCommand) (storeResult, error) {
	select {
	case <-s.closed:
		return storeResult{}, ErrClosed
	default:
	}
	cmd.reply = make(chan storeResult, 1)
	timer := time.NewTimer(enqueueTimeout)
	defer timer.Stop()

	select {
	case s.commands <- cmd:
	case <-s.closed:
		return storeResult{}, ErrClosed
	case <-ctx.Done():
		return storeResult{}, ctx.Err()
	case <-timer.C:
		return storeResult{}, errors.New("timed out while enqueuing command")
	}

	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-s.closed:
		return storeResult{}, ErrClosed
	case <-ctx.Done():
		return storeResult{}, ctx.Err()
	}
}

func (s *store) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Connector hands out connections bound to one private store.
// Every Connector is an independent collection that starts empty.
type Connector struct {
	store *store
}

// NewConnector creates a fresh, empty store; open it with sql.OpenDB.
func NewConnector() *Connector {
	return &Connector{store: newStore()}
}

// Connect creates a connection that forwards calls to the shared store.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{store: c.store}, nil
}

// Driver returns a driver.Driver backed by the same store.
func (c *Connector) Driver() driver.Driver {
	return &Driver{store: c.store}
}

// Close stops the store goroutine; sql.DB.Close calls it.
func (c *Connector) Close() error {
	c.store.close()
	return nil
}

// Driver wires the store into the database/sql world.
type Driver struct {
	store *store
}

// Open creates a connection that forwards calls to the shared store.
func (d *Driver) Open(string) (driver.Conn, error) {
	if d.store == nil {
		return nil, errors.New("memory driver store is not initialized")
	}
	return &conn{store: d.store}, nil
}

// conn is a lightweight connection object; every operation still travels through the store channel.
type conn struct {
	store *store
}

// Prepare builds a statement object for the small set of supported queries.
func (c *conn) Prepare(query string) (driver.Stmt, error) {
	trimmed := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	switch {
	case strings.HasPrefix(trimmed, "insert into teas"):
		return &stmt{store: c.store, action: actionInsertTea}, nil
	case strings.HasPrefix(trimmed, "select") && strings.Contains(trimmed, "from teas where id"):
		return &stmt{store: c.store, action: actionSelectTea}, nil
	case strings.HasPrefix(trimmed, "select") && strings.Contains(trimmed, "from teas"):
		return &stmt{store: c.store, action: actionListTeas}, nil
	case strings.HasPrefix(trimmed, "update teas"):
		return &stmt{store: c.store, action: actionUpdateTea}, nil
	case strings.HasPrefix(trimmed, "delete from teas"):
		return &stmt{store: c.store, action: actionDeleteTea}, nil
	case strings.HasPrefix(trimmed, "create table"):
		return &stmt{store: c.store, action: actionNoop}, nil
	default:
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
}

// Close is a no-op because the store owns the lifecycle.
func (c *conn) Close() error { return nil }

// Begin is not implemented because every statement is already atomic.
func (c *conn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions are not supported by the memory driver")
}

// stmt forwards Exec and Query to the store with the data shaped for each case.
type stmt struct {
	store  *store
	action storeAction
}

func (s *stmt) Close() error { return nil }

// NumInput returns -1 so database/sql accepts any argument count; command does its own checks.
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.exec(context.Background(), args)
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.exec(ctx, namedValues(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.query(context.Background(), args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.query(ctx, namedValues(args))
}

func (s *stmt) exec(ctx context.Context, args []driver.Value) (driver.Result, error) {
	if s.action == actionNoop {
		// Schema bootstrap statements do not touch the store.
		return execResult{}, nil
	}
	switch s.action {
	case actionInsertTea, actionUpdateTea, actionDeleteTea:
	default:
		return nil, fmt.Errorf("unsupported exec action %s", s.action)
	}
	cmd, err := s.command(args)
	if err != nil {
		return nil, err
	}
	res, err := s.store.submit(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return execResult{id: res.id, affected: res.affected}, nil
}

func (s *stmt) query(ctx context.Context, args []driver.Value) (driver.Rows, error) {
	switch s.action {
	case actionListTeas, actionSelectTea, actionUpdateTea:
	default:
		return nil, fmt.Errorf("query does not support %s", s.action)
	}
	cmd, err := s.command(args)
	if err != nil {
		return nil, err
	}
	res, err := s.store.submit(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &rows{teas: res.teas}, nil
}

// command maps positional arguments onto the store command for the statement.
func (s *stmt) command(args []driver.Value) (storeCommand, error) {
	cmd := storeCommand{action: s.action}
	switch s.action {
	case actionInsertTea:
		if len(args) < 2 {
			return cmd, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		cmd.tea = teaRecord{Name: toString(args[0]), Price: toFloat64(args[1])}
	case actionUpdateTea:
		if len(args) < 3 {
			return cmd, fmt.Errorf("expected 3 arguments, got %d", len(args))
		}
		cmd.tea = teaRecord{Name: toString(args[0]), Price: toFloat64(args[1]), ID: toInt64(args[2])}
	case actionSelectTea, actionDeleteTea:
		if len(args) < 1 {
			return cmd, fmt.Errorf("expected id for %s", s.action)
		}
		cmd.id = toInt64(args[0])
	}
	return cmd, nil
}

// execResult fulfills the driver.Result interface.
type execResult struct {
	id       int64
	affected int64
}

func (r execResult) LastInsertId() (int64, error) { return r.id, nil }
func (r execResult) RowsAffected() (int64, error) { return r.affected, nil }

// rows iterates over a copy of the matching records.
type rows struct {
	teas  []teaRecord
	index int
}

// Columns aligns with the projection used by the repository.
func (r *rows) Columns() []string {
	return []string{"id", "name", "price"}
}

func (r *rows) Close() error { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.index >= len(r.teas) {
		return io.EOF
	}
	record := r.teas[r.index]
	r.index++
	dest[0] = record.ID
	dest[1] = record.Name
	dest[2] = record.Price
	return nil
}

func namedValues(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}

// toString converts driver.Value into a usable string.
func toString(value driver.Value) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat64 converts driver.Value for the price column.
func toFloat64(value driver.Value) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		var parsed float64
		fmt.Sscanf(v, "%g", &parsed)
		return parsed
	default:
		return 0
	}
}

// toInt64 converts driver.Value to int64 when ids are involved.
func toInt64(value driver.Value) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(math.Round(v))
	case string:
		if v == "" {
			return 0
		}
		var parsed int64
		fmt.Sscanf(v, "%d", &parsed)
		return parsed
	default:
		return 0
	}
}

func cloneTeas(src []teaRecord) []teaRecord {
	out := make([]teaRecord, len(src))
	copy(out, src)
	return out
}

// EnsureSchema executes the CREATE TABLE statement so external databases get the right layout.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `CREATE TABLE IF NOT EXISTS teas (
                        id INTEGER PRIMARY KEY AUTOINCREMENT,
                        name TEXT,
                        price REAL
                )`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create teas table: %w", err)
	}
	return nil
}
