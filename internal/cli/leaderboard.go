package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/leaderboard"
)

// NewLeaderboardCmd pages through the leaderboard, or follows the live feed.
func NewLeaderboardCmd(configPath, serverURL *string) *cobra.Command {
	var (
		rows        int
		onlyPerfect bool
		all         bool
		follow      bool
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			api := newAPIClient(cfg, *serverURL)
			if follow {
				return followLeaderboard(cmd.Context(), api.WebSocketURL(), cmd.OutOrStdout(), log)
			}
			loader := leaderboard.NewLoader(api,
				leaderboard.WithPageSize(config.IntOr(cfg.Leaderboard.PageSize, leaderboard.DefaultPageSize)),
				leaderboard.WithOnlyPerfect(onlyPerfect),
				leaderboard.WithLogger(log),
			)
			defer loader.Close()
			var in io.Reader = cmd.InOrStdin()
			if all {
				in = nil
			}
			return browseLeaderboard(cmd.Context(), loader, rows, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10, "rows shown per screen")
	cmd.Flags().BoolVar(&onlyPerfect, "perfect", false, "only perfect scores")
	cmd.Flags().BoolVar(&all, "all", false, "print every entry without prompting")
	cmd.Flags().BoolVar(&follow, "follow", false, "stream the live top of the leaderboard")
	return cmd
}

// browseLeaderboard shows rows entries per screen; a nil input scrolls through everything.
func browseLeaderboard(ctx context.Context, loader *leaderboard.Loader, rows int, in io.Reader, out io.Writer) error {
	if rows <= 0 {
		rows = 10
	}
	viewport := func(top int) leaderboard.Viewport {
		return leaderboard.Viewport{ScrollTop: top, ClientHeight: rows, ScrollHeight: len(loader.State().Entries)}
	}

	var lines <-chan string
	if in != nil {
		done := make(chan struct{})
		defer close(done)
		lines = readLines(done, in)
	}

	loader.LoadMore(ctx, true)
	top := 0
	for {
		for loader.EnsureFilled(ctx, viewport(top)) {
		}
		for top+rows > len(loader.State().Entries) && loader.OnScroll(ctx, viewport(top)) {
		}

		state := loader.State()
		if len(state.Entries) == 0 {
			if state.Err != nil {
				fmt.Fprintln(out, "Leaderboard unavailable.")
			} else {
				fmt.Fprintln(out, "No scores yet.")
			}
			return nil
		}
		end := top + rows
		if end > len(state.Entries) {
			end = len(state.Entries)
		}
		for _, entry := range state.Entries[top:end] {
			fmt.Fprintln(out, formatEntry(entry))
		}
		if end == len(state.Entries) && !state.HasMore {
			return nil
		}

		if lines != nil {
			fmt.Fprint(out, "-- more (enter, q to quit) --")
			line, ok := <-lines
			fmt.Fprintln(out)
			if !ok || strings.EqualFold(strings.TrimSpace(line), "q") {
				return nil
			}
		}
		top = end
		loader.OnScroll(ctx, viewport(top))
	}
}

func formatEntry(e domain.RankedEntry) string {
	marker := ""
	if e.IsPerfectScore {
		marker = " *"
	}
	return fmt.Sprintf("%4d. %-40s %2d/%-2d  %4ds%s", e.Rank, e.Name, e.CorrectAnswers, e.TotalQuestions, e.TimeTakenSeconds, marker)
}

func followLeaderboard(ctx context.Context, url string, out io.Writer, log *zap.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg struct {
			Type    string                 `json:"type"`
			Payload domain.LeaderboardPage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Debug("leaderboard feed closed", zap.Error(err))
			return err
		}
		if msg.Type != "leaderboard" {
			continue
		}
		fmt.Fprintln(out, "\n== live leaderboard ==")
		for _, entry := range msg.Payload.Leaderboard {
			fmt.Fprintln(out, formatEntry(entry))
		}
	}
}
