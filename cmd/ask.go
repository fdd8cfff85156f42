package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/survivalbot/internal/client"
	"github.com/Yates-Labs/survivalbot/internal/config"
	"github.com/Yates-Labs/survivalbot/internal/models"
	"github.com/Yates-Labs/survivalbot/internal/orchestrator"
	"github.com/Yates-Labs/survivalbot/internal/server"
)

var (
	topK      int
	metric    string
	verbose   bool
	serverURL string
	token     string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the survival world",
	Long: `Ask a natural language question about the survival world.

This command:
1. Fetches the current monsters, survivors and resources
2. Formats every record as a context sentence
3. Selects the sentences most similar to your question
4. Generates an answer with a chat-completion model (Groq by default)

Required environment variables:
  GROQ_API_KEY       - API key for the chat-completion endpoint
  OPENAI_API_KEY     - only when embedding.provider is "openai"

Examples:
  survivalbot ask "Where is the closest food?"
  survivalbot ask "Which monsters are near District 1?" --topk 5 --verbose
  survivalbot ask "Is it safe to travel?" --server http://127.0.0.1:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&topK, "topk", 0, "Number of context sentences to retrieve (0 uses the config value)")
	askCmd.Flags().StringVar(&metric, "metric", "", "Similarity metric: cosine or euclidean (overrides config)")
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "Show the selected context with scores")
	askCmd.Flags().StringVar(&serverURL, "server", "", "Send the question to a running `survivalbot serve` at this URL")
	askCmd.Flags().StringVar(&token, "token", "", "Bearer token for --server (defaults to $SURVIVALBOT_TOKEN)")
}

var (
	headerColor   = lipgloss.Color("#F780FF") // Bright pink
	questionColor = lipgloss.Color("#8BE9FD") // Cyan
	answerColor   = lipgloss.Color("#E9E9F4") // Light purple/white
	contextColor  = lipgloss.Color("#6272A4") // Muted purple
	errorColor    = lipgloss.Color("#FF5555") // Red
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(questionColor).Italic(true)
	answerStyle   = lipgloss.NewStyle().Foreground(answerColor)
	contextStyle  = lipgloss.NewStyle().Foreground(contextColor).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("%s question must not be empty", errorStyle.Render("Error:"))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metric != "" {
		cfg.Ranking.Metric = metric
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(questionStyle.Render(question))
	fmt.Println()

	var resp models.QueryPostResponse
	if serverURL != "" {
		if token == "" {
			token = cfg.ServerToken(os.Getenv)
		}
		resp, err = client.New(serverURL, token).QueryPost(ctx, models.QueryPostRequest{Text: question, TopK: topK})
		if err != nil {
			return fmt.Errorf("%s failed to query server: %w", errorStyle.Render("Error:"), err)
		}
	} else {
		resp, err = askLocal(ctx, cfg, question)
		if err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}
	}

	if verbose {
		fmt.Println(headerStyle.Render("Context:"))
		for _, c := range resp.Context {
			fmt.Println(contextStyle.Render(fmt.Sprintf("  [%.4f] %s", c.Score, c.Text)))
		}
		fmt.Println()
	}

	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	style := answerStyle
	if resp.Failed {
		style = errorStyle
	}
	fmt.Println(style.Render(strings.TrimSpace(resp.Answer)))
	fmt.Println()

	return nil
}

func askLocal(ctx context.Context, cfg *config.Config, question string) (models.QueryPostResponse, error) {
	log := getLogger(cfg.Logging.Level)

	pipeline, err := orchestrator.NewPipeline(ctx, cfg, log)
	if err != nil {
		return models.QueryPostResponse{}, fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Close()

	res, err := pipeline.AskFresh(ctx, question, topK)
	if err != nil {
		return models.QueryPostResponse{}, err
	}

	return server.NewQueryResponse(res), nil
}
