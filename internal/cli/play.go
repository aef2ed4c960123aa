package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-service/internal/client"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/session"
)

// NewPlayCmd runs one timed quiz in the terminal against a running server.
func NewPlayCmd(configPath, serverURL *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a timed quiz and submit the score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			api := newAPIClient(cfg, *serverURL)
			return runPlay(cmd.Context(), api, sessionConfig(cfg), name, cmd.InOrStdin(), cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "player name (prompted when empty)")
	return cmd
}

func newAPIClient(cfg config.Config, serverURL string) *client.Client {
	base := config.StringOr(serverURL, config.StringOr(cfg.Client.BaseURL, "http://localhost:8080"))
	return client.New(base, config.TTLDuration(cfg.Client.Timeout, 10*time.Second))
}

func sessionConfig(cfg config.Config) session.Config {
	return session.Config{
		Duration:      config.TTLDuration(cfg.Quiz.Duration, session.DefaultDuration),
		FeedbackDelay: config.TTLDuration(cfg.Quiz.FeedbackDelay, session.DefaultFeedbackDelay),
	}
}

func runPlay(ctx context.Context, api *client.Client, cfg session.Config, name string, in io.Reader, out io.Writer, log *zap.Logger) error {
	done := make(chan struct{})
	defer close(done)
	lines := readLines(done, in)

	if strings.TrimSpace(name) == "" {
		fmt.Fprint(out, "Your name: ")
		line, ok := <-lines
		if !ok {
			return fmt.Errorf("no player name given")
		}
		name = line
	}

	player, err := api.CreatePlayer(ctx, domain.NewPlayer{Name: name})
	if err != nil {
		return err
	}
	questions, err := api.Questions(ctx)
	if err != nil {
		return err
	}

	s, err := session.New(questions, cfg, session.WithRecorder(player.ID, api), session.WithLogger(log))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Welcome %s! %d questions, %d seconds. Answer with the option number.\n",
		player.Name, len(questions), int(cfg.Duration.Seconds()))
	s.Start(ctx)

	shown := -1
	feedbackShown := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			summary, _ := s.Summary()
			printSummary(out, summary)
			return nil
		case state := <-s.Updates():
			if state.Feedback != session.FeedbackNone && feedbackShown != state.Index {
				feedbackShown = state.Index
				printFeedback(out, state)
			}
			if q, ok := state.Current(); ok && !state.Locked && shown != state.Index {
				shown = state.Index
				printQuestion(out, state, q)
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			option, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil || !s.HandleChoice(option-1) {
				fmt.Fprintln(out, "  (answer ignored)")
			}
		}
	}
}

// readLines streams input lines until in is exhausted or done is closed.
func readLines(done <-chan struct{}, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case <-done:
				return
			default:
			}
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

func printQuestion(out io.Writer, state session.State, q domain.Question) {
	fmt.Fprintf(out, "\n[%d/%d] %s  (%ds left)\n", state.Index+1, len(state.Questions), q.Text, int(state.Remaining.Seconds()))
	if q.HelperText != "" {
		fmt.Fprintf(out, "  %s\n", q.HelperText)
	}
	for i, option := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, option)
	}
}

func printFeedback(out io.Writer, state session.State) {
	q := state.Questions[state.Index]
	if state.Feedback == session.FeedbackCorrect {
		fmt.Fprintln(out, "  Correct!")
		return
	}
	fmt.Fprintf(out, "  Wrong. The answer was %q.\n", q.Options[q.CorrectOptionIndex])
}

func printSummary(out io.Writer, summary session.Summary) {
	fmt.Fprintf(out, "\n%s\n%s\n", summary.Title, summary.Subtitle)
	fmt.Fprintf(out, "Correct: %d  Wrong: %d  Total: %d  Accuracy: %d%%  Time: %ds\n",
		summary.Correct, summary.Wrong, summary.Total, summary.Accuracy, summary.TimeTakenSeconds)
	if summary.IsPerfect {
		fmt.Fprintln(out, "Perfect score!")
	}
}
