package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aluiziolira/go-book-harvester/config"
	"github.com/aluiziolira/go-book-harvester/models"
	"github.com/aluiziolira/go-book-harvester/scraper"
)

const envPrefix = "HARVEST"

func newRootCmd() *cobra.Command {
	v := viper.New()
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "scraper",
		Short: "Harvest book metadata, texts and covers from tululu.org",
		Long: `scraper walks a range of book IDs (or a category listing), fetches each
book page, extracts title, author, genres and comments, downloads the text
and cover image, and exports the collected records.

Every flag can also be set through a HARVEST_* environment variable
(HARVEST_START_ID, HARVEST_SKIP_IMGS, ...) or a harvester.yaml config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(cmd, v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./harvester.yaml)")
	flags.String("page-url", defaults.PageURLTemplate, "Book page URL template, {id} is replaced by the book id")
	flags.String("download-url", defaults.DownloadURLTemplate, "Book text URL template, {id} is replaced by the book id")
	flags.String("dest-folder", defaults.DestFolder, "Folder that receives the books and images directories")
	flags.String("books-dir", defaults.BooksDir, "Subdirectory for downloaded texts")
	flags.String("images-dir", defaults.ImagesDir, "Subdirectory for downloaded covers")
	flags.String("json-path", defaults.OutputFile, "Export file path")
	flags.String("format", defaults.OutputFormat, "Export format: json, jsonl, csv, yaml, or dual")
	flags.Bool("skip-txt", false, "Do not download book texts")
	flags.Bool("skip-imgs", false, "Do not download cover images")
	flags.Int("workers", defaults.Workers, "Number of books processed concurrently")
	flags.Duration("timeout", defaults.Timeout, "Per-request timeout")
	flags.Int("max-retries", defaults.MaxRetries, "Retry attempts for transport errors")
	flags.Duration("retry-backoff", defaults.RetryBackoff, "Initial retry backoff")
	flags.Duration("retry-backoff-max", defaults.RetryBackoffMax, "Maximum retry backoff")
	flags.String("user-agent", defaults.UserAgent, "User-Agent header")
	flags.String("naming", string(defaults.Naming), "Filename token: random or id")
	flags.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")

	root.Flags().Int("start-id", defaults.StartID, "First book id")
	root.Flags().Int("end-id", defaults.EndID, "Last book id (inclusive)")
	root.Flags().String("ids", "", "Comma-separated book ids; overrides the range")

	root.AddCommand(newCategoryCmd(v))
	return root
}

func newCategoryCmd(v *viper.Viper) *cobra.Command {
	defaults := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Harvest every book linked from a range of category listing pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategory(cmd, v)
		},
	}
	cmd.Flags().String("category-url", defaults.CategoryURLTemplate, "Listing URL template, {page} is replaced by the page number")
	cmd.Flags().Int("start-page", defaults.StartPage, "First listing page")
	cmd.Flags().Int("end-page", defaults.EndPage, "Last listing page (inclusive)")
	cmd.Flags().Int("dedupe-max-size", defaults.DedupeMaxSize, "Book ids remembered for de-duplication (0 disables)")
	return cmd
}

// initConfig binds the flags of the running command and reads the optional config file.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	if bindErr != nil {
		return fmt.Errorf("bind flags: %w", bindErr)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger, level := newLogger(v.GetBool("verbose"))
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
	if used := v.ConfigFileUsed(); used != "" && v.GetString("config") != "" {
		slog.Debug("using config file", slog.String("path", used))
	}
	return nil
}

// loadConfig builds a validated Config from flags, environment and config file.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.DefaultConfig()
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	setString("page-url", &cfg.PageURLTemplate)
	setString("download-url", &cfg.DownloadURLTemplate)
	setString("category-url", &cfg.CategoryURLTemplate)
	setInt("start-id", &cfg.StartID)
	setInt("end-id", &cfg.EndID)
	setInt("start-page", &cfg.StartPage)
	setInt("end-page", &cfg.EndPage)
	setString("dest-folder", &cfg.DestFolder)
	setString("books-dir", &cfg.BooksDir)
	setString("images-dir", &cfg.ImagesDir)
	setString("json-path", &cfg.OutputFile)
	setString("format", &cfg.OutputFormat)
	setInt("workers", &cfg.Workers)
	setInt("max-retries", &cfg.MaxRetries)
	setString("user-agent", &cfg.UserAgent)
	setString("metrics-addr", &cfg.MetricsAddr)
	setInt("dedupe-max-size", &cfg.DedupeMaxSize)

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.SkipText = v.GetBool("skip-txt")
	cfg.SkipImages = v.GetBool("skip-imgs")
	cfg.Verbose = v.GetBool("verbose")
	if v.IsSet("timeout") {
		cfg.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("retry-backoff") {
		cfg.RetryBackoff = v.GetDuration("retry-backoff")
	}
	if v.IsSet("retry-backoff-max") {
		cfg.RetryBackoffMax = v.GetDuration("retry-backoff-max")
	}
	if v.IsSet("naming") {
		cfg.Naming = config.NamingStrategy(strings.ToLower(v.GetString("naming")))
	}

	if raw := strings.TrimSpace(v.GetString("ids")); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return nil, err
		}
		cfg.IDs = ids
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseIDs(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runRange(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}
	refs, err := cfg.References()
	if err != nil {
		slog.Error("building id list", slog.Any("error", err))
		return err
	}
	return harvest(cmd.Context(), cfg, refs, scraper.NewMetrics())
}

func runCategory(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	metrics := scraper.NewMetrics()
	catalog, err := scraper.NewCatalog(cfg, metrics)
	if err != nil {
		slog.Error("initialising category paginator", slog.Any("error", err))
		return err
	}

	slog.Info("collecting category links",
		slog.String("category_url", cfg.CategoryURLTemplate),
		slog.Int("start_page", cfg.StartPage),
		slog.Int("end_page", cfg.EndPage),
	)
	refs, err := catalog.Collect(cmd.Context(), cfg.StartPage, cfg.EndPage)
	if err != nil && len(refs) == 0 {
		slog.Error("collecting category links", slog.Any("error", err))
		return err
	}
	slog.Info("category links collected", slog.Int("books", len(refs)))
	return harvest(cmd.Context(), cfg, refs, metrics)
}

func refIDs(refs []models.ItemReference) []int {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID())
	}
	return ids
}
