package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trivia-board-service/internal/auth"
	"trivia-board-service/internal/board"
	"trivia-board-service/internal/config"
	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/infra/memory"
	infraredis "trivia-board-service/internal/infra/redis"
	"trivia-board-service/internal/syncclient"
)

// NewBoardCmd opens a game through the sync layer and prints its board.
func NewBoardCmd(opts *options) *cobra.Command {
	var (
		gameID   string
		server   string
		user     string
		password string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the board of a game, optionally following it live",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if gameID == "" {
				return errors.New("--game is required")
			}
			if server == "" {
				server = cfg.Sync.ServerURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := syncclient.NewClient(server)
			if user != "" {
				if err := client.Login(ctx, user, password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
			}

			cache, closeCache, err := snapshotCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			session, err := syncclient.Open(ctx, client, cache, gameID)
			if err != nil {
				return err
			}
			defer session.Stop()

			out := cmd.OutOrStdout()
			renderBoard(out, session.Game(), session.Board())
			if !watch {
				return nil
			}
			return follow(ctx, out, session, config.TTLDuration(cfg.Sync.RefreshInterval, 30*time.Second))
		},
	}
	cmd.Flags().StringVar(&gameID, "game", "", "game id")
	cmd.Flags().StringVar(&server, "server", "", "board API base URL, defaults to sync.serverURL")
	cmd.Flags().StringVar(&user, "user", "", "admin user to log in as")
	cmd.Flags().StringVar(&password, "password", os.Getenv("TRIVIA_ADMIN_PASSWORD"), "admin password (env: TRIVIA_ADMIN_PASSWORD)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep refreshing and re-render on every change")
	return cmd
}

// NewHashPasswordCmd prints the bcrypt hash to put into auth.adminPasswordHash.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash an admin password for the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func snapshotCache(ctx context.Context, cfg config.Config) (syncclient.Cache, func(), error) {
	if cfg.Redis.Addr == "" {
		return memory.NewSnapshotCache(), func() {}, nil
	}
	client, err := redisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	return infraredis.NewSnapshotCache(client, "cli", ttl), func() { _ = client.Close() }, nil
}

func follow(ctx context.Context, out io.Writer, session *syncclient.Session, interval time.Duration) error {
	if err := session.StartAutoRefresh(interval); err != nil {
		return err
	}
	seen := session.Revision()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if rev := session.Revision(); rev != seen {
				seen = rev
				fmt.Fprintln(out)
				renderBoard(out, session.Game(), session.Board())
			}
		}
	}
}

// renderBoard prints the scores and one column per category. Answered cells show "xx" and
// empty cells "--".
func renderBoard(w io.Writer, game domain.Game, b board.Board) {
	fmt.Fprintf(w, "%s  %s %d : %d %s  [%s]\n", game.Name,
		game.FirstTeamName, game.FirstTeamScore, game.SecondTeamScore, game.SecondTeamName, game.Status)
	if game.Winner != nil {
		fmt.Fprintf(w, "winner: %s\n", *game.Winner)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(b.Columns)+1)
	header = append(header, "")
	for _, column := range b.Columns {
		header = append(header, column.Category.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for row := 0; row < domain.MaxPoints-domain.MinPoints+1; row++ {
		line := []string{fmt.Sprintf("%d", domain.MinPoints+row)}
		for _, column := range b.Columns {
			cell := column.Cells[row]
			switch {
			case cell.Empty():
				line = append(line, "--")
			case cell.Answered:
				line = append(line, "xx")
			default:
				line = append(line, fmt.Sprintf("%d", cell.Points))
			}
		}
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	_ = tw.Flush()
}
