package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/pkg/api"
	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

// changelogCommand reads the change log of a tenant from a running server.
// The log lives in the server's editor session, so there is no offline mode.
func (c *CLI) changelogCommand() *cobra.Command {
	var (
		addr   string
		types  []string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Show or follow a tenant's change log on a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			for _, t := range types {
				if !changelog.Type(t).Valid() {
					return errors.New(errors.ErrCodeInvalidInput, "unknown entry type %q", t)
				}
			}
			if follow {
				return c.followChangelog(cmd.Context(), addr, types)
			}
			entries, err := fetchChangelog(cmd.Context(), addr, c.tenant, types)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No entries for %s", c.tenant)
				return nil
			}
			for _, e := range entries {
				printEntry(e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server address (default from config)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "only show entries of these types")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new entries until interrupted")
	return cmd
}

func tenantURL(scheme, addr, tenant, suffix string) string {
	u := url.URL{Scheme: scheme, Host: addr, Path: "/tenants/" + url.PathEscape(tenant) + suffix}
	return u.String()
}

func fetchChangelog(ctx context.Context, addr, tenant string, types []string) ([]changelog.Entry, error) {
	target := tenantURL("http", addr, tenant, "/changelog")
	if len(types) > 0 {
		target += "?" + url.Values{"type": types}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "reach server at %s", addr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read changelog")
	}
	if resp.StatusCode != http.StatusOK {
		var e api.ErrorBody
		if json.Unmarshal(body, &e) == nil && e.Code != "" {
			return nil, errors.New(e.Code, "%s", e.Message)
		}
		return nil, errors.New(errors.ErrCodeNetwork, "server returned %s", resp.Status)
	}
	var entries []changelog.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decode changelog")
	}
	return entries, nil
}

// followChangelog prints streamed entries until ctx is cancelled or the
// server closes the connection.
func (c *CLI) followChangelog(ctx context.Context, addr string, types []string) error {
	target := tenantURL("ws", addr, c.tenant, "/changelog/stream")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "connect to %s", target)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	printInfo("Following %s (ctrl+c to stop)", c.tenant)
	for {
		var e changelog.Entry
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(errors.ErrCodeNetwork, err, "read changelog stream")
		}
		if matchesType(e.Type, types) {
			printEntry(e)
		}
	}
}

func matchesType(t changelog.Type, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if string(t) == want {
			return true
		}
	}
	return false
}

// printEntry prints one entry as "time type payload".
func printEntry(e changelog.Entry) {
	ts := StyleDim.Render(e.Timestamp.Local().Format("15:04:05.000"))
	kind := StyleHighlight.Render(fmt.Sprintf("%-18s", e.Type))
	if e.Type == changelog.Error {
		kind = StyleWarning.Render(fmt.Sprintf("%-18s", e.Type))
	}
	payload := ""
	if len(e.Payload) > 0 {
		b, _ := json.Marshal(e.Payload)
		payload = strings.TrimSpace(string(b))
	}
	fmt.Fprintln(out, ts+" "+kind+" "+payload)
}
