package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseline/internal/app"
	"caseline/internal/config"
	"caseline/internal/db"
	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/repo"
	"caseline/internal/server"
	"caseline/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Caseline CLI",
	Long: `Caseline tracks dental lab cases through their review workflow.
- Workspace: the .caseline directory holding the case database.
- Cases: each restoration job moves pending_intake -> pending_approval ->
  in_design -> pending_review -> pending_client_review -> approved, with
  rejections bouncing work back to in_design and counting a refinement.
- Actors: owners (dentists), admins (front office), and staff with
  designer/reviewer capabilities. Staff must be assigned to a case to act.
- Audit log: every accepted change is recorded; history and refinement
  reports are derived from it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CASELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "acting actor identifier")
	rootCmd.PersistentFlags().String("practice", "", "practice id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("practice", rootCmd.PersistentFlags().Lookup("practice"))
}

func registerCommands() {
	rootCmd.AddCommand(caseCmd())
	rootCmd.AddCommand(actorCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	appCtx, err := app.Open(viper.GetString("workspace"), viper.GetString("practice"))
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, appCtx.Engine)
}

// actingPrincipal resolves the --actor-id flag against the actors registry
// so role checks use the registered role, not a caller-chosen one.
func actingPrincipal(ctx context.Context, e engine.Engine) (domain.Actor, error) {
	actorID := viper.GetString("actor-id")
	a, err := e.Repo.GetActor(ctx, actorID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("actor %s is not registered; run cl actor register first: %w", actorID, err)
	}
	return a, nil
}

func caseCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "case",
		Short: "Manage cases",
		Long:  "Cases are restoration jobs. Create one for an owner, assign staff, then move it through the workflow with transition.",
	}
	c.AddCommand(caseCreateCmd())
	c.AddCommand(caseListCmd())
	c.AddCommand(caseShowCmd())
	c.AddCommand(caseAssignCmd())
	c.AddCommand(caseTransitionCmd())
	c.AddCommand(caseHistoryCmd())
	c.AddCommand(caseNextCmd())
	c.AddCommand(caseRefinementsCmd())
	return c
}

func caseCreateCmd() *cobra.Command {
	var ownerID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				owner := ownerID
				if owner == "" {
					owner = viper.GetString("actor-id")
				}
				c, err := e.CreateCase(ctx, owner)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "owning actor id (defaults to --actor-id)")
	return cmd
}

func caseListCmd() *cobra.Command {
	var status, ownerID, assigneeID string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if status != "" {
					if _, err := workflow.ParseStatus(status); err != nil {
						return err
					}
				}
				items, err := e.Repo.ListCases(ctx, caseFilters(status, ownerID, assigneeID, limit))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Status", "Owner", "Designer", "Reviewer", "Refinements"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Status, c.OwnerID, strOrDash(c.DesignerID), strOrDash(c.ReviewerID), c.RefinementCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&ownerID, "owner", "", "filter by owner")
	cmd.Flags().StringVar(&assigneeID, "assignee", "", "filter by assigned staff")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results")
	return cmd
}

func caseShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Repo.GetCase(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func caseAssignCmd() *cobra.Command {
	var designerID, reviewerID string
	cmd := &cobra.Command{
		Use:   "assign <case-id>",
		Short: "Assign designer and reviewer (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AssignActors(ctx, engine.AssignRequest{
					CaseID:     args[0],
					DesignerID: designerID,
					ReviewerID: reviewerID,
					AdminID:    viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&designerID, "designer", "", "designer actor id")
	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "reviewer actor id")
	return cmd
}

func caseTransitionCmd() *cobra.Command {
	var to, note string
	cmd := &cobra.Command{
		Use:   "transition <case-id>",
		Short: "Request a status transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				target, err := workflow.ParseStatus(to)
				if err != nil {
					return err
				}
				actor, err := actingPrincipal(ctx, e)
				if err != nil {
					return err
				}
				c, err := e.Transition(ctx, engine.TransitionRequest{
					CaseID:  args[0],
					To:      target,
					ActorID: actor.ID,
					Role:    workflow.Role(actor.Role),
					SubRole: workflow.SubRole(actor.SubRole),
					Note:    note,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target status")
	cmd.Flags().StringVar(&note, "note", "", "audit note")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func caseHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <case-id>",
		Short: "Show the audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.History(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "From", "To", "By", "Note"})
				for _, entry := range entries {
					tw.AppendRow(table.Row{entry.TS, strOrDash(entry.FromStatus), entry.ToStatus, entry.PerformedBy, entry.Note})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func caseNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next <case-id>",
		Short: "Transitions available to the acting actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := actingPrincipal(ctx, e)
				if err != nil {
					return err
				}
				next, err := e.AvailableTransitions(ctx, args[0], actor.ID, workflow.Role(actor.Role), workflow.SubRole(actor.SubRole))
				if err != nil {
					return err
				}
				names := make([]string, 0, len(next))
				for _, s := range next {
					names = append(names, string(s))
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"case_id": args[0], "next": names})
				}
				if len(names) == 0 {
					fmt.Println("no transitions available")
					return nil
				}
				for _, n := range names {
					fmt.Println(n)
				}
				return nil
			})
		},
	}
	return cmd
}

func caseRefinementsCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "refinements <case-id>",
		Short: "Refinement count derived from the audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var startT, endT time.Time
				var err error
				if start != "" {
					if startT, err = time.Parse(time.RFC3339, start); err != nil {
						return fmt.Errorf("--start must be RFC3339: %w", err)
					}
				}
				if end != "" {
					if endT, err = time.Parse(time.RFC3339, end); err != nil {
						return fmt.Errorf("--end must be RFC3339: %w", err)
					}
				}
				count, err := e.RefinementsInPeriod(ctx, args[0], startT, endT)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"case_id": args[0], "count": count})
				}
				fmt.Printf("refinements: %d\n", count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "period start (RFC3339, inclusive)")
	cmd.Flags().StringVar(&end, "end", "", "period end (RFC3339, exclusive)")
	return cmd
}

func actorCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "actor",
		Short: "Manage the actors registry",
	}
	a.AddCommand(actorRegisterCmd())
	a.AddCommand(actorListCmd())
	a.AddCommand(actorShowCmd())
	return a
}

func actorRegisterCmd() *cobra.Command {
	var id, name, role, subRole string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register or update an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := workflow.ParseRole(role)
				if err != nil {
					return err
				}
				s, err := workflow.ParseSubRole(subRole)
				if err != nil {
					return err
				}
				if r == workflow.RoleStaff && s == workflow.SubRoleNone {
					return fmt.Errorf("staff actors need --sub-role")
				}
				if r != workflow.RoleStaff && s != workflow.SubRoleNone {
					return fmt.Errorf("--sub-role only applies to staff")
				}
				a, err := e.Repo.UpsertActor(ctx, domain.Actor{ID: id, Name: name, Role: string(r), SubRole: string(s)})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "actor id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "", "owner, admin, or staff")
	cmd.Flags().StringVar(&subRole, "sub-role", "", "designer, reviewer, or both (staff only)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func actorListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if role != "" {
					if _, err := workflow.ParseRole(role); err != nil {
						return err
					}
				}
				items, err := e.Repo.ListActors(ctx, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Sub-role"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Role, a.SubRole})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	return cmd
}

func actorShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <actor-id>",
		Short: "Show an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Repo.GetActor(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "report",
		Short: "Reporting views over the case population",
	}
	r.AddCommand(reportStatusCmd())
	return r
}

func reportStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Case counts by status and bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.StatusCounts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				fmt.Printf("Total cases: %d\n", rep.Total)
				fmt.Println("By status:")
				for status, n := range rep.ByStatus {
					fmt.Printf("  %s: %d\n", status, n)
				}
				if len(rep.Buckets) > 0 {
					fmt.Println("Buckets:")
					for bucket, n := range rep.Buckets {
						fmt.Printf("  %s: %d\n", bucket, n)
					}
				}
				return nil
			})
		},
	}
	return cmd
}

func auditCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "audit",
		Short: "Audit trail tooling",
	}
	a.AddCommand(auditVerifyCmd())
	return a
}

func auditVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <case-id>",
		Short: "Replay the audit trail and compare against cached state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.VerifyCase(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.StatusMatch && res.RefinementMatch {
					fmt.Printf("case %s OK (status=%s refinements=%d)\n", res.CaseID, res.Status, res.RefinementCount)
					return nil
				}
				fmt.Printf("case %s DIVERGED\n", res.CaseID)
				fmt.Printf("  status: cached=%s replayed=%s\n", res.Status, res.ReplayedStatus)
				fmt.Printf("  refinements: cached=%d replayed=%d\n", res.RefinementCount, res.ReplayedRefCount)
				return fmt.Errorf("audit trail divergence")
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRevokeCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, secret, err := e.CreateAPIKey(ctx, actorID, name)
				if err != nil {
					return err
				}
				out := map[string]any{
					"id":       key.ID,
					"actor_id": key.ActorID,
					"name":     key.Name,
					"key":      secret,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("api key created (store it now, it is not shown again):\n%s\n", secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range items {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked")
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in caseline.yml: practice identity, auth settings, reporting buckets, and webhooks.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var practiceID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default caseline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if practiceID == "" {
				practiceID = "default-practice"
			}
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(practiceID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&practiceID, "practice", "", "practice id")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Printf("config OK (practice %s)\n", cfg.Practice.ID)
			return nil
		},
	}
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := app.Open(viper.GetString("workspace"), viper.GetString("practice"))
			if err != nil {
				return err
			}
			defer appCtx.Close()
			fmt.Println("database up to date")
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := app.Open(viper.GetString("workspace"), viper.GetString("practice"))
			if err != nil {
				return err
			}
			defer appCtx.Close()
			cfg := appCtx.Config
			authCfg := server.AuthConfig{
				JWTSecret:              cfg.Auth.JWTSecret,
				AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
				DevLogin:               cfg.Auth.DevLogin,
			}
			if env := os.Getenv("CASELINE_JWT_SECRET"); env != "" {
				authCfg.JWTSecret = env
			}
			if authCfg.JWTSecret == "" && !authCfg.AllowLegacyActorHeader {
				return fmt.Errorf("CASELINE_JWT_SECRET (or auth.jwt_secret) is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: appCtx.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(appCtx.Engine)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Caseline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func caseFilters(status, ownerID, assigneeID string, limit int) repo.CaseFilters {
	return repo.CaseFilters{
		Status:     status,
		OwnerID:    ownerID,
		AssigneeID: assigneeID,
		Limit:      limit,
	}
}

func strOrDash(ptr *string) string {
	if ptr == nil || *ptr == "" {
		return "-"
	}
	return *ptr
}
