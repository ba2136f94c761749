package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"acutils-go/internal/acu"
	"acutils-go/internal/app"
	"acutils-go/internal/config"
	"acutils-go/internal/credential"
	"acutils-go/internal/directory"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptSecret reads a secret from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(data), nil
}

// progressPrinter reports fan-out completion counts on stderr.
func progressPrinter() acu.ProgressFunc {
	return func(done int) {
		fmt.Fprintf(os.Stderr, "\rfetched %d", done)
	}
}

var rootCmd = &cobra.Command{
	Use:   "acutil",
	Short: "AccuRev server inventory tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", cfg.HostID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Binary:   %s\n", cfg.AccuRev.Binary)
		if len(cfg.Depots) > 0 {
			fmt.Printf("Depots:   %s\n", strings.Join(cfg.Depots, ", "))
		}
		return nil
	},
}

// credential command
var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the directory bind secret",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the directory bind secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		secret, err := promptSecret("Bind secret: ")
		if err != nil {
			return err
		}
		passphrase, err := promptSecret("Passphrase: ")
		if err != nil {
			return err
		}

		store := credential.NewStore(cfg.Credential.SecretPath)
		if err := store.Set(passphrase, secret); err != nil {
			return fmt.Errorf("storing secret: %w", err)
		}

		fmt.Printf("Secret stored at %s\n", cfg.Credential.SecretPath)
		return nil
	},
}

// depots command
var depotsCmd = &cobra.Command{
	Use:   "depots",
	Short: "List depots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("depots")
		if err != nil {
			return err
		}
		defer a.Close()

		depots, err := a.ListDepots(cmd.Context())
		if err != nil {
			return err
		}

		for _, d := range depots {
			locking := ""
			if d.ExclusiveLocking {
				locking = "  [exclusive locking]"
			}
			fmt.Printf("%4d  %-30s  slice %d  case %s%s\n", d.ID, d.Name, d.Slice, d.Case, locking)
		}
		return nil
	},
}

// streams command
var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "List streams in a depot",
	RunE: func(cmd *cobra.Command, args []string) error {
		depot, _ := cmd.Flags().GetString("depot")
		children, _ := cmd.Flags().GetString("children")

		a, err := newApp("streams")
		if err != nil {
			return err
		}
		defer a.Close()

		var streams []*acu.Stream
		if children != "" {
			streams, err = a.StreamChildren(cmd.Context(), depot, children)
		} else {
			streams, err = a.ListStreams(cmd.Context(), depot)
		}
		if err != nil {
			return err
		}

		for _, s := range streams {
			hidden := ""
			if s.Hidden {
				hidden = "  [hidden]"
			}
			fmt.Printf("%4d  %-40s  %-12s  basis %s%s\n", s.ID, s.Name, s.Type, s.Basis, hidden)
		}
		return nil
	},
}

// wspaces command
var wspacesCmd = &cobra.Command{
	Use:   "wspaces",
	Short: "List workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		depot, _ := cmd.Flags().GetString("depot")

		a, err := newApp("wspaces")
		if err != nil {
			return err
		}
		defer a.Close()

		workspaces, err := a.ListWorkspaces(cmd.Context(), depot)
		if err != nil {
			return err
		}

		for _, w := range workspaces {
			fmt.Printf("%4d  %-40s  %s@%s  trans %d/%d\n",
				w.ID, w.Name, w.UserName, w.Host, w.UpdateLevel, w.TargetLevel)
		}
		return nil
	},
}

// users command
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List principals",
	RunE: func(cmd *cobra.Command, args []string) error {
		withGroups, _ := cmd.Flags().GetBool("groups")
		enrich, _ := cmd.Flags().GetBool("enrich")

		a, err := newApp("users")
		if err != nil {
			return err
		}
		defer a.Close()

		var dir acu.DirectoryService
		if enrich {
			dir, err = newDirectory(a.Config())
			if err != nil {
				return err
			}
		}

		var progress acu.ProgressFunc
		if withGroups || enrich {
			progress = progressPrinter()
		}
		users, err := a.ListUsers(cmd.Context(), withGroups, dir, progress)
		if withGroups || enrich {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		for _, u := range users {
			state := ""
			if !u.Active {
				state = "  [inactive]"
			}
			line := fmt.Sprintf("%4d  %-20s%s", u.ID, u.Name, state)
			if enrich && u.Mail != "" {
				line += fmt.Sprintf("  %s %s <%s>", u.GivenName, u.Surname, u.Mail)
			}
			if withGroups {
				line += "  " + strings.Join(u.Groups(), ",")
			}
			fmt.Println(line)
		}
		return nil
	},
}

// newDirectory builds the LDAP directory service, unlocking the bind
// secret from the credential store.
func newDirectory(cfg *config.Config) (acu.DirectoryService, error) {
	if !cfg.LDAP.Enabled {
		return nil, fmt.Errorf("directory enrichment is not enabled in config")
	}

	passphrase, err := promptSecret("Passphrase: ")
	if err != nil {
		return nil, err
	}

	store := credential.NewStore(cfg.Credential.SecretPath)
	secret, err := store.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking bind secret: %w", err)
	}

	return directory.New(cfg.LDAP, secret), nil
}

// groups command
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List group principals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("groups")
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := a.ListGroups(cmd.Context())
		if err != nil {
			return err
		}

		for _, g := range groups {
			fmt.Printf("%4d  %s\n", g.ID, g.Name)
		}
		return nil
	},
}

// locks command
var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "List stream locks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("locks")
		if err != nil {
			return err
		}
		defer a.Close()

		locks, err := a.ListLocks(cmd.Context())
		if err != nil {
			return err
		}

		for _, l := range locks {
			scope := ""
			if l.ExceptFor != "" {
				scope = "  except " + l.ExceptFor
			}
			if l.OnlyFor != "" {
				scope = "  only " + l.OnlyFor
			}
			fmt.Printf("%-40s  %-4s%s  %s\n", l.Stream, l.Kind, scope, l.Comment)
		}
		return nil
	},
}

// permissions command
var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List ACL entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		kindFlag, _ := cmd.Flags().GetString("kind")
		kind := acu.PermissionKind(kindFlag)
		if kind != acu.PermissionDepot && kind != acu.PermissionStream {
			return fmt.Errorf("kind must be %q or %q", acu.PermissionDepot, acu.PermissionStream)
		}

		a, err := newApp("permissions")
		if err != nil {
			return err
		}
		defer a.Close()

		permissions, err := a.ListPermissions(cmd.Context(), kind)
		if err != nil {
			return err
		}

		for _, p := range permissions {
			inherit := ""
			if p.Inheritable {
				inherit = "  [inheritable]"
			}
			fmt.Printf("%-40s  %-20s  %-5s%s\n", p.Name, p.AppliesTo, p.Rights, inherit)
		}
		return nil
	},
}

// rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List include/exclude rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		depot, _ := cmd.Flags().GetString("depot")
		stream, _ := cmd.Flags().GetString("stream")
		if depot == "" && stream == "" {
			return fmt.Errorf("either --depot or --stream is required")
		}

		a, err := newApp("rules")
		if err != nil {
			return err
		}
		defer a.Close()

		var progress acu.ProgressFunc
		if stream == "" {
			progress = progressPrinter()
		}
		rules, err := a.ListRules(cmd.Context(), depot, stream, progress)
		if stream == "" {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		for _, r := range rules {
			fmt.Printf("%-40s  %-7s  %s\n", r.Stream, r.Kind, r.Location)
		}
		return nil
	},
}

// hist command
var histCmd = &cobra.Command{
	Use:   "hist",
	Short: "List depot transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		depot, _ := cmd.Flags().GetString("depot")
		timeSpec, _ := cmd.Flags().GetString("time")

		a, err := newApp("hist")
		if err != nil {
			return err
		}
		defer a.Close()

		transactions, err := a.History(cmd.Context(), depot, timeSpec)
		if err != nil {
			return err
		}

		if len(transactions) == 0 {
			fmt.Println("No transactions in range.")
			return nil
		}

		for _, t := range transactions {
			fmt.Printf("#%-8d  %-10s  %s  %-15s  %d version(s)\n",
				t.ID, t.Type, t.Time.Format("2006-01-02 15:04:05"), t.User, len(t.Versions))
			if t.Comment != "" {
				fmt.Printf("           %s\n", t.Comment)
			}
		}
		return nil
	},
}

// stat command
var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "List element statuses in a stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, _ := cmd.Flags().GetString("stream")

		a, err := newApp("stat")
		if err != nil {
			return err
		}
		defer a.Close()

		elements, err := a.Status(cmd.Context(), stream)
		if err != nil {
			return err
		}

		for _, e := range elements {
			fmt.Printf("%-60s  %-10s  %s\n", e.Location, e.Virtual, e.Status)
		}
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage inventory snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Capture the current inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Snapshot saved: %s\n", id)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("snapshot-list")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshots, err := a.ListSnapshots(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(snapshots) == 0 {
			fmt.Println("No snapshots recorded.")
			return nil
		}

		for _, s := range snapshots {
			fmt.Printf("%s  %s  %d depot(s)  %d stream(s)\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.DepotCount, s.StreamCount)
		}
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an inventory report into the configured sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = "inventory-" + time.Now().UTC().Format("20060102T150405Z") + ".csv"
		}

		a, err := newApp("report")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Report(cmd.Context(), name); err != nil {
			return err
		}

		fmt.Printf("Report stored: %s\n", name)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	credentialCmd.AddCommand(credentialSetCmd)

	streamsCmd.Flags().StringP("depot", "p", "", "Depot to list streams for")
	streamsCmd.Flags().String("children", "", "Show only the direct children of this stream")
	streamsCmd.MarkFlagRequired("depot")

	wspacesCmd.Flags().StringP("depot", "p", "", "Restrict to one depot")

	usersCmd.Flags().Bool("groups", false, "Include transitive group membership")
	usersCmd.Flags().Bool("enrich", false, "Enrich users from the identity directory")

	permissionsCmd.Flags().String("kind", "depot", "Permission kind: depot or stream")

	rulesCmd.Flags().StringP("depot", "p", "", "List rules for every stream in this depot")
	rulesCmd.Flags().StringP("stream", "s", "", "List rules for one stream")

	histCmd.Flags().StringP("depot", "p", "", "Depot to query")
	histCmd.Flags().StringP("time", "t", "now", "Transaction time spec")
	histCmd.MarkFlagRequired("depot")

	statCmd.Flags().StringP("stream", "s", "", "Stream to query")
	statCmd.MarkFlagRequired("stream")

	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotListCmd.Flags().IntP("limit", "n", 50, "Maximum number of snapshots to show")

	reportCmd.Flags().String("name", "", "Report object name (default: timestamped)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(credentialCmd)
	rootCmd.AddCommand(depotsCmd)
	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(wspacesCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(locksCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(histCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(reportCmd)
}
