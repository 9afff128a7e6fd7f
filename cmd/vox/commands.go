package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/voicedev/vox/internal/config"
	"github.com/voicedev/vox/internal/domain"
	"github.com/voicedev/vox/internal/gitops"
	"github.com/voicedev/vox/internal/llm"
	"github.com/voicedev/vox/internal/prompt"
	"github.com/voicedev/vox/internal/scaffold"
	"github.com/voicedev/vox/internal/session"
	"github.com/voicedev/vox/internal/stt"
	"github.com/voicedev/vox/internal/swarm"
	"github.com/voicedev/vox/internal/tts"
	"github.com/voicedev/vox/tui"
	"github.com/voicedev/vox/web/api"
)

var (
	translateTask      string
	translateSession   string
	translateNoReason  bool
	generateTask       string
	generateSession    string
	generateProvider   string
	generateSwarm      bool
	generateStream     bool
	scaffoldLanguage   string
	scaffoldProvider   string
	gitRepoDir         string
	gitLogCount        int
	gitCommitMessage   string
	servePort          int
)

func init() {
	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)

	// translate command
	translateCmd := &cobra.Command{
		Use:   "translate TEXT",
		Short: "Translate natural language into a structured prompt",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranslate,
	}
	translateCmd.Flags().StringVar(&translateTask, "task", "", "task type (code_generation, review, test_generation, refactor, debug, explain)")
	translateCmd.Flags().StringVar(&translateSession, "session", "", "session id for conversation context")
	translateCmd.Flags().BoolVar(&translateNoReason, "no-reasoning", false, "omit the reasoning scaffold")
	rootCmd.AddCommand(translateCmd)

	// generate command
	generateCmd := &cobra.Command{
		Use:   "generate TEXT",
		Short: "Translate and run through a model provider",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&generateTask, "task", "", "task type")
	generateCmd.Flags().StringVar(&generateSession, "session", "", "session id for conversation context")
	generateCmd.Flags().StringVar(&generateProvider, "provider", "", "preferred provider")
	generateCmd.Flags().BoolVar(&generateSwarm, "swarm", false, "run the full agent pipeline")
	generateCmd.Flags().BoolVar(&generateStream, "stream", false, "stream output fragments")
	rootCmd.AddCommand(generateCmd)

	// session commands
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE:  runSessionList,
	})
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show a session's history",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionShow,
	})
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Create a session",
		RunE:  runSessionNew,
	})
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionDelete,
	})
	rootCmd.AddCommand(sessionCmd)

	// templates command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "templates",
		Short: "List registered task templates",
		RunE:  runTemplates,
	})

	// scaffold command
	scaffoldCmd := &cobra.Command{
		Use:   "scaffold DESCRIPTION",
		Short: "Generate a domain-driven project scaffold",
		Args:  cobra.ExactArgs(1),
		RunE:  runScaffold,
	}
	scaffoldCmd.Flags().StringVar(&scaffoldLanguage, "language", "python", "target language (python, typescript)")
	scaffoldCmd.Flags().StringVar(&scaffoldProvider, "provider", "", "preferred provider")
	rootCmd.AddCommand(scaffoldCmd)

	// git commands
	gitCmd := &cobra.Command{
		Use:   "git",
		Short: "Repository operations",
	}
	gitCmd.PersistentFlags().StringVar(&gitRepoDir, "repo", ".", "repository directory")
	gitCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		RunE:  runGitStatus,
	})
	gitLogCmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent commits",
		RunE:  runGitLog,
	}
	gitLogCmd.Flags().IntVar(&gitLogCount, "count", 10, "number of commits")
	gitCmd.AddCommand(gitLogCmd)
	gitCommitCmd := &cobra.Command{
		Use:   "commit",
		Short: "Stage everything and commit",
		RunE:  runGitCommit,
	}
	gitCommitCmd.Flags().StringVarP(&gitCommitMessage, "message", "m", "", "commit message")
	gitCmd.AddCommand(gitCommitCmd)
	gitCmd.AddCommand(&cobra.Command{
		Use:   "branch [NAME]",
		Short: "List branches, or create and switch to a new one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGitBranch,
	})
	rootCmd.AddCommand(gitCmd)

	// tui command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Launch the session dashboard",
		RunE:  runTUI,
	})
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// newStore opens the configured session store: SQLite when a database
// path is set, in-memory otherwise.
func newStore(cfg *config.Config) (session.Store, error) {
	if cfg.General.DatabasePath == "" {
		return session.NewMemoryStore(cfg.Sessions.MaxSessions), nil
	}
	return session.NewSQLiteStore(cfg.General.DatabasePath)
}

// newRenderer builds the template loader, renderer, and optional
// override watcher from config.
func newRenderer(cfg *config.Config) (*prompt.Renderer, *prompt.Watcher, error) {
	loader := prompt.DefaultLoader(cfg.Templates.OverrideDir)

	var watcher *prompt.Watcher
	if cfg.Templates.Watch && cfg.Templates.OverrideDir != "" {
		w, err := prompt.NewWatcher(loader, cfg.Templates.OverrideDir)
		if err != nil {
			return nil, nil, fmt.Errorf("template watcher: %w", err)
		}
		watcher = w
	}

	return prompt.NewRenderer(loader, cfg.Templates.MaxHistory), watcher, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	router, err := llm.NewRouterFromConfig(&cfg.LLM)
	if err != nil {
		return err
	}

	renderer, watcher, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	deps := api.Deps{
		Store:    store,
		Router:   router,
		Renderer: renderer,
		LLM:      &cfg.LLM,
		Git:      gitops.NewManager("."),
	}
	if p, err := stt.NewProvider(cfg.STT); err == nil {
		deps.STT = p
	}
	if p, err := tts.NewProvider(cfg.TTS); err == nil {
		deps.TTS = p
	}

	if cfg.Sessions.TTLHours > 0 {
		ttl := time.Duration(cfg.Sessions.TTLHours) * time.Hour
		janitor, err := session.NewJanitor(store, ttl, cfg.Sessions.SweepCron)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	port := cfg.Web.Port
	if servePort != 0 {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.NewServer(cfg.Web.Host, port, deps).Run(ctx)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	renderer, _, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	includeReasoning := !translateNoReason
	spec, err := prompt.Build(prompt.Input{
		NaturalText:      args[0],
		TaskType:         translateTask,
		IncludeReasoning: &includeReasoning,
	})
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	history, err := sessionHistory(store, translateSession, &spec)
	if err != nil {
		return err
	}

	rendered, err := renderer.Render(spec, history)
	if err != nil {
		return err
	}

	fmt.Print(rendered.Text())
	return nil
}

// sessionHistory loads history and sticky context for the given session
// id; a blank id yields nothing.
func sessionHistory(store session.Store, id string, spec *domain.PromptSpec) ([]domain.Entry, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	spec.Context = append(append(domain.Context(nil), sess.Context...), spec.Context...)
	return sess.History, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	router, err := llm.NewRouterFromConfig(&cfg.LLM)
	if err != nil {
		return err
	}

	renderer, _, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	spec, err := prompt.Build(prompt.Input{NaturalText: args[0], TaskType: generateTask})
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	history, err := sessionHistory(store, generateSession, &spec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if generateSwarm {
		orch := swarm.New(router, renderer, swarm.Options{
			Provider:   generateProvider,
			NewRequest: func(p string) llm.Request { return llm.DefaultRequest(&cfg.LLM, p) },
			OnEvent: func(ev swarm.Event) {
				if ev.Role != "" {
					fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Role, ev.Status)
				}
			},
		})

		run, runErr := orch.Run(ctx, spec, history)
		if run != nil {
			if err := store.SaveRun(generateSession, run); err != nil {
				fmt.Fprintf(os.Stderr, "record pipeline run: %v\n", err)
			}
			for _, res := range run.Results {
				fmt.Fprintf(os.Stderr, "--- %s (%s) ---\n", res.Role, res.Elapsed.Round(time.Millisecond))
			}
			if out := run.FinalOutput(); out != "" {
				fmt.Println(out)
			}
		}
		return runErr
	}

	rendered, err := renderer.Render(spec, history)
	if err != nil {
		return err
	}
	req := llm.DefaultRequest(&cfg.LLM, rendered.Text())

	if generateStream {
		stream, err := router.RouteStream(ctx, req, generateProvider)
		if err != nil {
			return err
		}
		defer stream.Cancel()
		for fragment := range stream.Fragments() {
			fmt.Print(fragment)
		}
		fmt.Println()
		return stream.Err()
	}

	out, err := router.Route(ctx, req, generateProvider)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTRIES\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", s.ID, s.Entries, s.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Session %s (created %s)\n", sess.ID, sess.CreatedAt.Format(time.RFC3339))
	for _, e := range sess.Context {
		fmt.Printf("  context %s: %s\n", e.Key, e.Value)
	}
	for _, entry := range sess.History {
		fmt.Printf("\n[%s] %s\n%s\n", entry.Role, entry.Timestamp.Format(time.RFC3339), entry.Content)
	}
	return nil
}

func runSessionNew(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.Create(nil)
	if err != nil {
		return err
	}
	fmt.Println(sess.ID)
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}

const scaffoldInstruction = `Design a domain model for the following description. Respond with a single fenced json block of the form:
` + "```json" + `
{"domain_name": "...", "entities": [{"name": "...", "fields": [{"name": "...", "type": "...", "required": true}], "methods": []}], "value_objects": [], "repositories": [], "services": []}
` + "```" + `

Description: `

func runScaffold(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	router, err := llm.NewRouterFromConfig(&cfg.LLM)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := llm.DefaultRequest(&cfg.LLM, scaffoldInstruction+args[0])
	out, err := router.Route(ctx, req, scaffoldProvider)
	if err != nil {
		return err
	}

	sc, err := scaffold.ParseLLMOutput(out)
	if err != nil {
		return err
	}
	files, err := scaffold.NewGenerator(scaffoldLanguage).Generate(sc)
	if err != nil {
		return err
	}

	for path, content := range files {
		full := filepath.Join(".", path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", full)
	}
	return nil
}

func runTemplates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	metas, err := prompt.DefaultLoader(cfg.Templates.OverrideDir).ListTemplates()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, m.Description)
	}
	return w.Flush()
}

func runGitBranch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mgr := gitops.NewManager(gitRepoDir)
	if len(args) == 1 {
		if err := mgr.CreateBranch(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Switched to new branch %s\n", args[0])
		return nil
	}

	current, err := mgr.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	branches, err := mgr.Branches(ctx)
	if err != nil {
		return err
	}
	for _, b := range branches {
		marker := "  "
		if b == current {
			marker = "* "
		}
		fmt.Println(marker + b)
	}
	return nil
}

func runGitStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := gitops.NewManager(gitRepoDir).Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("On branch %s\n", st.Branch)
	if st.Clean {
		fmt.Println("Working tree clean")
		return nil
	}
	for _, c := range st.Changes {
		fmt.Println(c)
	}
	return nil
}

func runGitLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	entries, err := gitops.NewManager(gitRepoDir).Log(ctx, gitLogCount)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%.8s\t%s\t%s\n", e.Hash, e.Author, e.Message)
	}
	return w.Flush()
}

func runGitCommit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hash, err := gitops.NewManager(gitRepoDir).Commit(ctx, gitCommitMessage)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var providers []string
	if router, err := llm.NewRouterFromConfig(&cfg.LLM); err == nil {
		providers = router.Providers()
	}

	model := tui.NewModel(tui.ModelConfig{Store: store, Providers: providers})
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
