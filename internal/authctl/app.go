// Package authctl implements the operator command line: provisioning OAuth2
// clients without an owning user and one-off maintenance tasks.
package authctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type ClientCreator interface {
	CreateClient(ctx context.Context, clientID, secret string, redirectURIs []string, ownerID int64) (*models.OAuth2Client, error)
}

type Reaper interface {
	ReapExpired(ctx context.Context) (int64, error)
}

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	clients ClientCreator
	reaper  Reaper
	in      *bufio.Reader
	out     io.Writer
}

func NewApp(clients ClientCreator, reaper Reaper, in io.Reader, out io.Writer) *App {
	return &App{clients: clients, reaper: reaper, in: bufio.NewReader(in), out: out}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: authctl <command>")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  create-client   register an OAuth2 client with no owning user")
	fmt.Fprintln(a.out, "  reap-tokens     delete expired blacklist entries")
	fmt.Fprintln(a.out, "  help            show this message")
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	switch args[0] {
	case "create-client":
		return a.createClient(ctx)
	case "reap-tokens":
		return a.reapTokens(ctx)
	case "help", "-h", "--help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

func (a *App) createClient(ctx context.Context) error {
	clientID, err := GetSimpleText(a.in, "Client ID", a.out)
	if err != nil {
		return err
	}
	uris, err := GetSimpleText(a.in, "Redirect URIs (comma separated, empty for none)", a.out)
	if err != nil {
		return err
	}
	secret, err := GetSecret("Client secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	client, err := a.clients.CreateClient(ctx, clientID, string(secret), splitList(uris), 0)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	fmt.Fprintf(a.out, "Client %q created", client.ClientID)
	if len(client.RedirectURIs) > 0 {
		fmt.Fprintf(a.out, " (redirect URIs: %s)", strings.Join(client.RedirectURIs, ", "))
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) reapTokens(ctx context.Context) error {
	n, err := a.reaper.ReapExpired(ctx)
	if err != nil {
		return fmt.Errorf("reap tokens: %w", err)
	}
	fmt.Fprintf(a.out, "Removed %d expired blacklist entries\n", n)
	return nil
}
