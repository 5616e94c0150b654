// Package cli implements the sqlai command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/1broseidon/sqlai/client"
	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/config"
	"github.com/1broseidon/sqlai/internal/logging"
	"github.com/1broseidon/sqlai/internal/server"
	"github.com/1broseidon/sqlai/providers"
	"github.com/1broseidon/sqlai/providers/googlegemini"
	"github.com/1broseidon/sqlai/transport"
	"github.com/1broseidon/sqlai/udf"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IOStreams holds the standard streams of a command.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// NewDefaultCommand creates the `sqlai` command bound to the process streams.
func NewDefaultCommand() *cobra.Command {
	return NewCommand(IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

// NewCommand creates the `sqlai` command.
func NewCommand(streams IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqlai",
		Short: "sqlai runs the ai_prompt and create_embed SQL functions from the command line",
		Long: `sqlai calls LLM providers the way the ai_prompt and create_embed SQL functions do:
the same validation, NULL handling, error messages and output truncation.

Providers: anthropic, google, googlegemini, openai, ollama.
Configuration comes from flags, SQLAI_* environment variables, a .env file
and an optional config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.String(config.KeyConfigFile, "", "path to a config file (yaml, json or toml)")
	flags.String(config.KeyLogLevel, "disabled", "log level: disabled, debug, info, warn, error")
	flags.Duration(config.KeyTimeout, common.DefaultTimeout, "per-call timeout")
	flags.String(config.KeyCAFile, "", "PEM bundle used to verify provider certificates")
	flags.String(config.KeyLocalAddr, "", "local IP address to bind outbound connections to")
	flags.Int(config.KeyMaxOutputSize, common.DefaultMaxOutputSize, "output buffer size in bytes, terminator included")

	cmd.AddCommand(
		newFunctionCommand(streams, "ai_prompt", "prompt [text]", "Send a prompt to a provider and print the completion"),
		newFunctionCommand(streams, "create_embed", "embed [text]", "Embed text and print the vector as a JSON array"),
		newServeCommand(streams),
		newModelsCommand(streams),
	)
	return cmd
}

// env bundles everything a subcommand builds from configuration.
type env struct {
	src     *config.Source
	cfg     *config.Config
	logger  logging.Logger
	client  *client.Client
	adapter *udf.Adapter
}

func setup(flags *pflag.FlagSet, streams IOStreams, baseURL, provider string) (*env, error) {
	registry := client.NewDefaultRegistry()
	src, err := config.NewSource(flags, registry.Names())
	if err != nil {
		return nil, err
	}
	cfg, err := src.Config()
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		if _, err := transport.ParseBaseURL(baseURL); err != nil {
			return nil, fmt.Errorf("--base-url: %w", err)
		}
		cfg.BaseURLs[provider] = baseURL
	}

	logger := logging.NewZapLogger(newZap(streams.ErrOut), cfg.LogLevel)

	opts := []client.ClientOption{
		client.WithRegistry(registry),
		client.WithLogger(logger),
		client.WithTimeout(cfg.Timeout),
		client.WithTransport(transport.New(append(cfg.TransportOptions(), transport.WithLogger(logger))...)),
	}
	for name, u := range cfg.BaseURLs {
		opts = append(opts, client.WithBaseURL(name, u))
	}
	c := client.NewClient(opts...)

	adapter := udf.New(c,
		udf.WithLogger(logger),
		udf.WithMaxOutputSize(cfg.MaxOutputSize),
		udf.WithMaxErrorLength(cfg.MaxErrorLength),
	)
	return &env{src: src, cfg: cfg, logger: logger, client: c, adapter: adapter}, nil
}

// newZap writes human-readable entries to w; the returned logger's own
// level does the filtering.
func newZap(w io.Writer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

func newFunctionCommand(streams IOStreams, function, use, short string) *cobra.Command {
	var provider, model, apiKey, baseURL string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

The text is taken from the arguments, or from stdin when none are given or
the only argument is "-". The API key defaults to $SQLAI_API_KEY.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Flags(), streams, baseURL, provider)
			if err != nil {
				return err
			}

			text, err := readText(streams.In, args)
			if err != nil {
				return err
			}
			if apiKey == "" {
				apiKey = os.Getenv("SQLAI_API_KEY")
			}

			res, err := e.adapter.Call(cmd.Context(), function, []udf.Arg{
				udf.String(provider), udf.String(model), udf.String(apiKey), udf.String(text),
			})
			if err != nil {
				return err
			}
			return printResult(streams, res)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model name")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "provider API key")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "override the provider endpoint, scheme://host[:port]")
	return cmd
}

func newServeCommand(streams IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the SQL functions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Flags(), streams, "", "")
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e.src.Watch(func(cfg *config.Config, err error) {
				if err != nil {
					e.logger.Warnf("Ignoring config change: %v", err)
					return
				}
				e.logger.SetLevel(cfg.LogLevel)
				e.logger.Infof("Log level set to %s", cfg.LogLevel)
			})

			handler := server.NewHandler(e.adapter, e.logger).Routes()
			return server.Serve(ctx, e.cfg.Listen, handler, e.logger)
		},
	}
	cmd.Flags().String(config.KeyListen, "127.0.0.1:8080", "address to listen on")
	return cmd
}

func newModelsCommand(streams IOStreams) *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models a Google API key can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Flags(), streams, "", "")
			if err != nil {
				return err
			}
			if apiKey == "" {
				apiKey = os.Getenv("SQLAI_API_KEY")
			}
			if apiKey == "" {
				return common.EmptyFieldError("API key")
			}

			provider := googlegemini.NewGoogleGeminiProvider(providers.Config{
				Logger:  e.logger,
				Timeout: e.cfg.Timeout,
				BaseURL: e.cfg.BaseURLs[googlegemini.SDKName],
			})
			list, err := provider.ListModels(cmd.Context(), apiKey)
			if err != nil {
				return err
			}

			table := uitable.New()
			table.MaxColWidth = 60
			table.AddRow("NAME", "DISPLAY NAME", "METHODS")
			for _, m := range list {
				table.AddRow(m.Name, m.DisplayName, strings.Join(m.Methods, ","))
			}
			_, err = fmt.Fprintln(streams.Out, table)
			return err
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Google API key")
	return cmd
}

func readText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if in == nil {
		return "", nil
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// FunctionError is returned when a call completes with an error result.
type FunctionError struct {
	Message string
}

func (e *FunctionError) Error() string {
	return e.Message
}

func printResult(streams IOStreams, res *udf.Result) error {
	switch res.Type {
	case udf.ResultNull:
		fmt.Fprintln(streams.Out, "NULL")
	case udf.ResultError:
		return &FunctionError{Message: res.ErrorMsg}
	default:
		fmt.Fprintln(streams.Out, res.Value())
		if res.Truncated {
			fmt.Fprintf(streams.ErrOut, "warning: output truncated to %d bytes\n", res.ActualLen)
		}
	}
	return nil
}

// Execute runs the default command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewDefaultCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}
