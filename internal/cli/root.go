package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/go-airtable/airtable"
	"github.com/go-airtable/airtable/core"
)

var (
	flagApiKey   string
	flagEndpoint string
	flagBase     string
	flagConfig   string
	flagEnvFile  string
	flagOutput   string
	flagDebug    bool
	flagNoRetry  bool

	logger *slog.Logger
	client *airtable.Client
	base   *airtable.Base
)

// NewRootCmd creates the root cobra command for the airtable CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "airtable",
		Short: "Read and write Airtable records",
		Long:  "airtable lists, reads, creates, updates and deletes records of an Airtable base.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagApiKey, "api-key", "", "API key (or AIRTABLE_API_KEY env)")
	root.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "API endpoint URL (or AIRTABLE_ENDPOINT_URL env)")
	root.PersistentFlags().StringVar(&flagBase, "base", "", "Base id (or AIRTABLE_BASE_ID env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML profile with connection settings")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "File with environment variables to load if present")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format (table, json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&flagNoRetry, "no-retry", false, "Fail on rate limiting instead of backing off")

	root.AddCommand(
		newListCmd(),
		newGetCmd(),
		newCreateCmd(),
		newUpdateCmd(false),
		newUpdateCmd(true),
		newDeleteCmd(),
	)
	return root
}

func setup(cmd *cobra.Command) error {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", flagEnvFile, err)
		}
	}
	if flagOutput != "table" && flagOutput != "json" {
		return fmt.Errorf("unknown output format %q", flagOutput)
	}

	profile := &Profile{}
	if flagConfig != "" {
		var err error
		if profile, err = LoadProfile(flagConfig); err != nil {
			return err
		}
	}

	level := os.Getenv(core.EnvLogLevel)
	if flagDebug {
		level = "debug"
	}
	logger = core.NewLogger(level, cmd.ErrOrStderr())

	config := profile.Config()
	config.Logger = logger
	if flagApiKey != "" {
		config.ApiKey = flagApiKey
	}
	if flagEndpoint != "" {
		config.EndpointUrl = flagEndpoint
	}
	config.NoRetryIfRateLimited = config.NoRetryIfRateLimited || flagNoRetry

	var err error
	if client, err = airtable.New(config); err != nil {
		return err
	}

	baseID := firstNonEmpty(flagBase, profile.Base, os.Getenv(EnvBaseID))
	if baseID == "" {
		return errors.New("a base id is required: use --base, the profile or " + EnvBaseID)
	}
	base = client.Base(baseID)
	logger.Debug("client ready", "endpoint", config.EndpointUrl, "base", baseID)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
