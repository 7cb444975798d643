package tea

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// queueTimeout bounds how long a caller waits for the loop to accept its command.
const queueTimeout = 2 * time.Second

type action int

const (
	actionCreate action = iota
	actionList
	actionGet
	actionUpdate
	actionDelete
)

func (a action) String() string {
	switch a {
	case actionCreate:
		return "create"
	case actionList:
		return "list"
	case actionGet:
		return "get"
	case actionUpdate:
		return "update"
	case actionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// command is a single unit of work executed by the service goroutine.
type command struct {
	ctx    context.Context
	action action
	tea    Tea
	id     int64
	reply  chan result
}

// result carries either a record, the full list, or an error back to the caller.
type result struct {
	tea  Tea
	teas []Tea
	err  error
}

// Service owns a goroutine that applies one command at a time, so every
// operation sees the collection either before or after any other one.
type Service struct {
	repo      *Repository
	commands  chan command
	quit      chan struct{}
	closeOnce sync.Once
}

// NewService starts the background goroutine immediately.
func NewService(repo *Repository) *Service {
	svc := &Service{
		repo:     repo,
		commands: make(chan command),
		quit:     make(chan struct{}),
	}
	go svc.loop()
	return svc
}

func (s *Service) loop() {
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- s.apply(cmd)
		case <-s.quit:
			return
		}
	}
}

func (s *Service) apply(cmd command) result {
	switch cmd.action {
	case actionCreate:
		stored, err := s.repo.Save(cmd.ctx, cmd.tea)
		return result{tea: stored, err: err}
	case actionList:
		teas, err := s.repo.List(cmd.ctx)
		return result{teas: teas, err: err}
	case actionGet:
		found, err := s.repo.Get(cmd.ctx, cmd.id)
		return result{tea: found, err: err}
	case actionUpdate:
		updated, err := s.repo.Update(cmd.ctx, cmd.tea)
		return result{tea: updated, err: err}
	case actionDelete:
		return result{err: s.repo.Delete(cmd.ctx, cmd.id)}
	default:
		return result{err: fmt.Errorf("unknown tea action %s", cmd.action)}
	}
}

// dispatch hands the command to the loop and waits for its reply.
// The reply channel is buffered so the loop never blocks on a caller that gave up.
func (s *Service) dispatch(ctx context.Context, cmd command) (result, error) {
	if err := ctx.Err(); err != nil {
		return result{}, err
	}
	select {
	case <-s.quit:
		return result{}, errClosed
	default:
	}

	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-s.quit:
		return result{}, errClosed
	case <-time.After(queueTimeout):
		return result{}, errBusy
	}

	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// Create stores a new tea and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, t Tea) (Tea, error) {
	res, err := s.dispatch(ctx, command{action: actionCreate, tea: Tea{Name: t.Name, Price: t.Price}})
	if err != nil {
		return Tea{}, err
	}
	return res.tea, nil
}

// List returns every tea in insertion order.
func (s *Service) List(ctx context.Context) ([]Tea, error) {
	res, err := s.dispatch(ctx, command{action: actionList})
	if err != nil {
		return nil, err
	}
	return res.teas, nil
}

// Get looks a tea up by id.
func (s *Service) Get(ctx context.Context, id int64) (Tea, error) {
	res, err := s.dispatch(ctx, command{action: actionGet, id: id})
	if err != nil {
		return Tea{}, err
	}
	return res.tea, nil
}

// Update replaces name and price of the tea with the given id.
func (s *Service) Update(ctx context.Context, id int64, t Tea) (Tea, error) {
	t.ID = id
	res, err := s.dispatch(ctx, command{action: actionUpdate, tea: t})
	if err != nil {
		return Tea{}, err
	}
	return res.tea, nil
}

// Delete removes the tea with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.dispatch(ctx, command{action: actionDelete, id: id})
	return err
}

// Close stops the background goroutine. It is safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}
