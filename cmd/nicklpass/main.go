package main

import (
	"os"
	"runtime/debug"
	"strconv"

	"github.com/brizzai/nicklpass/internal/auth"
	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/google"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/plaid"
	"github.com/brizzai/nicklpass/internal/rules"
	"github.com/brizzai/nicklpass/internal/server"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/brizzai/nicklpass/internal/web"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	Execute()
}

var (
	rulesFile string
	rulesYAML bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nicklpass",
	Short: "Third-party access and SaaS spend visibility for Google Workspace",
	Long: `Nicklpass shows which third-party apps the users of a Google Workspace
organization have connected, how recently each user signed in, and what the
organization spends on SaaS according to its linked bank account.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		pterm.Info.Println(config.GetVersionInfo())
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective Google app keywords and SaaS vendors",
	RunE:  runRules,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	config.InitFlags(serveCmd.Flags())

	rulesCmd.Flags().StringVar(&rulesFile, "rules-file", "", "Path to a YAML rules file overriding the keyword lists")
	rulesCmd.Flags().BoolVar(&rulesYAML, "yaml", false, "Print the lists as a rules file instead of tables")

	rootCmd.AddCommand(serveCmd, versionCmd, rulesCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		logger.Module,
		session.Module,
		google.Module,
		auth.Module,
		plaid.Module,
		rules.Module,
		web.Module,
		server.Module,
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	set, err := rules.Load(rulesFile)
	if err != nil {
		return err
	}
	effective := set.Rules()

	if rulesYAML {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(effective)
	}

	source := "built-in defaults"
	if rulesFile != "" {
		source = rulesFile
	}
	pterm.DefaultSection.Println("Rules (" + source + ")")

	if err := renderList("Google app keyword", effective.GoogleApps); err != nil {
		return err
	}
	if err := renderList("SaaS vendor", effective.SaaSVendors); err != nil {
		return err
	}
	pterm.Info.Printfln("%s Google keywords, %s SaaS vendors.",
		pterm.LightGreen(len(effective.GoogleApps)),
		pterm.LightGreen(len(effective.SaaSVendors)))
	return nil
}

func renderList(header string, items []string) error {
	data := pterm.TableData{{"#", header}}
	for i, item := range items {
		data = append(data, []string{strconv.Itoa(i + 1), item})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
