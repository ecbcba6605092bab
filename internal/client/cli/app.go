package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/equiplookup/internal/client/catalog"
	"github.com/dmitrijs2005/equiplookup/internal/client/models"
	"github.com/dmitrijs2005/equiplookup/internal/client/provider"
	"github.com/dmitrijs2005/equiplookup/internal/client/session"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
)

// Session is the identity surface used by the REPL.
type Session interface {
	Current() (session.Identity, bool)
	Watch(fn func(session.Snapshot)) (cancel func())
	SignIn(ctx context.Context, email, password string) (session.Identity, error)
	SignOut(ctx context.Context)
}

// Catalog is the catalog surface used by the REPL.
type Catalog interface {
	Search(ctx context.Context, pattern string) ([]models.Equipment, error)
	List(ctx context.Context) ([]models.Equipment, error)
	Insert(ctx context.Context, in models.EquipmentInput) (*models.Equipment, error)
	BulkInsert(ctx context.Context, batch []models.EquipmentInput) (*catalog.BulkResult, error)
	Health(ctx context.Context) error
}

// UserAdmin creates accounts. Only admins may call it.
type UserAdmin interface {
	CreateUser(ctx context.Context, in provider.NewUser) (*provider.User, error)
}

type App struct {
	session Session
	catalog Catalog
	users   UserAdmin
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	// images downloads presigned image URLs. It must not carry the
	// catalog bearer token.
	images *http.Client
}

func NewApp(s Session, c Catalog, u UserAdmin, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		session: s,
		catalog: c,
		users:   u,
		logger:  l,
		reader:  bufio.NewReader(in),
		out:     out,
		images:  http.DefaultClient,
	}
}

// Run prints session changes as they happen and serves the REPL until the
// user exits or input ends.
func (a *App) Run(ctx context.Context) {
	stop := a.session.Watch(a.announce)
	defer stop()

	fmt.Fprintln(a.out, "Welcome to equiplookup (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)
}

func (a *App) announce(s session.Snapshot) {
	switch s.State {
	case session.StateAuthenticated:
		fmt.Fprintf(a.out, "\nSigned in as %s (%s)\n", s.Identity.Username, s.Identity.Role)
	case session.StateUnauthenticated:
		fmt.Fprintln(a.out, "\nSigned out")
	}
}

func (a *App) isLoggedIn() bool {
	_, ok := a.session.Current()
	return ok
}

func (a *App) isAdmin() bool {
	id, ok := a.session.Current()
	return ok && id.IsAdmin()
}

func (a *App) status() string {
	id, ok := a.session.Current()
	if !ok {
		return ""
	}
	return fmt.Sprintf("(%s %s)", id.Email, id.Role)
}
