package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"partybox/internal/commands"
	"partybox/internal/extension"
	"partybox/internal/host"
	"partybox/pkg/logging"
)

// workspace selects the directory the extension treats as the open
// workspace. Empty means no workspace, which is a supported state.
var runWorkspace string

// debug enables verbose logging across the application.
var runDebug bool

// headless skips the interactive chat panel and keeps the extension
// running until the process receives SIGINT or SIGTERM. Useful for
// scripting and for exercising the command surface from another shell.
var runHeadless bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Activate the Party Box extension against a workspace",
	Long: `Activates the Party Box extension: loads configuration, connects the
backend clients, registers the chat view and commands, and probes
backend connectivity.

By default the interactive chat panel is opened; quit it to deactivate
the extension and exit. With --headless the extension stays active in
the background until the process is interrupted.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if runDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	workspaceRoot := runWorkspace
	if workspaceRoot != "" {
		abs, err := filepath.Abs(workspaceRoot)
		if err != nil {
			return fmt.Errorf("failed to resolve workspace path: %w", err)
		}
		workspaceRoot = abs
	}

	hctx := host.NewExtensionContext(resourceDir(), workspaceRoot)

	coordinator := extension.New()
	// Generate/review prompts read from the terminal; in chat mode the
	// panel owns stdin, so the commands are meant for headless use.
	coordinator.SetInputSource(commands.NewLineInput(os.Stdin, os.Stderr))
	coordinator.Activate(hctx)
	defer hctx.ReleaseAll()
	defer coordinator.Deactivate()

	if runHeadless {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		return nil
	}

	view, ok := hctx.View(extension.ChatViewID)
	if !ok {
		return fmt.Errorf("activation failed, see log output above")
	}
	panel, ok := view.(interface{ Run() error })
	if !ok {
		return fmt.Errorf("chat view is not runnable")
	}
	return panel.Run()
}

// resourceDir locates the bundled assets next to the binary, falling
// back to the working directory for `go run` style invocations.
func resourceDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runWorkspace, "workspace", ".", "Workspace directory to activate against (empty for no workspace)")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without the interactive chat panel until interrupted")
}
