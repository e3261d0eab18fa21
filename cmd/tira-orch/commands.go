package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/redmi6provk-cell/tira-order-auto/internal/automation"
	"github.com/redmi6provk-cell/tira-order-auto/internal/batch"
	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
	"github.com/redmi6provk-cell/tira-order-auto/internal/namepool"
	"github.com/redmi6provk-cell/tira-order-auto/internal/notify"
	"github.com/redmi6provk-cell/tira-order-auto/internal/orchestrator"
	"github.com/redmi6provk-cell/tira-order-auto/internal/store"
	"github.com/redmi6provk-cell/tira-order-auto/tui"
	"github.com/redmi6provk-cell/tira-order-auto/web/api"
)

var (
	orderStart       int
	orderEnd         int
	orderAddress     string
	orderPayment     string
	orderCard        string
	orderProducts    []string
	orderReps        int
	orderConcurrency int
	orderMaxValue    float64
	orderNameSuffix  string
	orderTestLogin   bool

	checkpointStart       int
	checkpointEnd         int
	checkpointConcurrency int

	servePort int
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)

	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Run a bulk order task and wait for it",
		RunE:  runOrder,
	}
	orderCmd.Flags().IntVar(&orderStart, "start", 1, "first account position")
	orderCmd.Flags().IntVar(&orderEnd, "end", 1, "last account position")
	orderCmd.Flags().StringVar(&orderAddress, "address", "", "address ID to deliver to")
	orderCmd.Flags().StringVar(&orderPayment, "payment", "cod", "payment method (cod, upi, card)")
	orderCmd.Flags().StringVar(&orderCard, "card", "", "stored card ID for card payments")
	orderCmd.Flags().StringArrayVar(&orderProducts, "product", nil, "product URL to order (repeatable)")
	orderCmd.Flags().IntVar(&orderReps, "reps", 1, "repetitions per account")
	orderCmd.Flags().IntVar(&orderConcurrency, "concurrency", 0, "concurrent sessions (0 = config default)")
	orderCmd.Flags().Float64Var(&orderMaxValue, "max-cart-value", 0, "abort a repetition when the cart total exceeds this")
	orderCmd.Flags().StringVar(&orderNameSuffix, "name-suffix", "", "suffix appended to randomized address names")
	orderCmd.Flags().BoolVar(&orderTestLogin, "test-login", false, "only verify each account's session, place no orders")
	rootCmd.AddCommand(orderCmd)

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Run a bulk checkpoint task and wait for it",
		RunE:  runCheckpoint,
	}
	checkpointCmd.Flags().IntVar(&checkpointStart, "start", 1, "first account position")
	checkpointCmd.Flags().IntVar(&checkpointEnd, "end", 1, "last account position")
	checkpointCmd.Flags().IntVar(&checkpointConcurrency, "concurrency", 0, "concurrent sessions (0 = config default)")
	rootCmd.AddCommand(checkpointCmd)

	statusCmd := &cobra.Command{
		Use:   "status [TASK]",
		Short: "Show tasks on a running server",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	logsCmd := &cobra.Command{
		Use:   "logs SESSION",
		Short: "Show the stored log for a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogs,
	}
	rootCmd.AddCommand(logsCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Live task monitor for a running server",
		RunE:  runWatch,
	}
	rootCmd.AddCommand(watchCmd)

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage stored accounts",
	}
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import accounts, addresses and cards from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	accountsCmd.AddCommand(importCmd)
	rootCmd.AddCommand(accountsCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// buildService assembles the orchestrator from config. The returned
// cleanup releases the store and the name pool watcher.
func buildService(cfg *config.Config, opts orchestrator.Options) (*orchestrator.Service, *store.Store, func(), error) {
	st, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() { st.Close() }

	if opts.Names == nil && cfg.General.NamesPath != "" {
		pool, err := namepool.Load(config.ExpandPath(cfg.General.NamesPath))
		if err != nil {
			log.Printf("name pool unavailable: %v", err)
		} else {
			if err := pool.Watch(); err != nil {
				log.Printf("name pool watch: %v", err)
			}
			opts.Names = pool
			prev := cleanup
			cleanup = func() {
				pool.Close()
				prev()
			}
		}
	}

	if opts.Notifier == nil && cfg.Notify.SlackWebhook != "" {
		opts.Notifier = notify.NewSlackNotifier(cfg.Notify.SlackWebhook)
	}
	opts.Site = cfg.Site

	launcher := &automation.HTTPLauncher{Site: cfg.Site, Timeout: cfg.RequestTimeout()}
	delays := automation.NewDelays(cfg.Delays)
	svc := orchestrator.New(st, launcher, delays, orchestrator.NewRegistry(), opts)
	return svc, st, cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port := cfg.Web.Port
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)

	// Hubs come first so events from the very first session reach the
	// streams.
	hubs := api.NewHubs()
	svc, st, cleanup, err := buildService(cfg, orchestrator.Options{Broadcaster: hubs.Broadcaster()})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := startSweeps(ctx, cfg, svc)
	if err != nil {
		return err
	}
	if sched != nil {
		defer sched.Stop()
		log.Printf("scheduled %d checkpoint sweeps", len(cfg.Sweeps))
	}

	server := api.NewServer(svc, st, addr, hubs)
	log.Printf("listening on %s", addr)
	return server.Start()
}

func runOrder(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, _, cleanup, err := buildService(cfg, orchestrator.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	products := make([]domain.Product, len(orderProducts))
	for i, url := range orderProducts {
		products[i] = domain.Product{URL: url, Quantity: 1}
	}

	concurrency := orderConcurrency
	if concurrency == 0 {
		concurrency = cfg.General.MaxConcurrent
	}
	mode := domain.ModeFullAutomation
	if orderTestLogin {
		mode = domain.ModeTestLogin
	}

	orderCfg := domain.BulkOrderConfig{
		RangeStart:      orderStart,
		RangeEnd:        orderEnd,
		Products:        products,
		AddressID:       orderAddress,
		PaymentMethod:   domain.PaymentMethod(orderPayment),
		CardID:          orderCard,
		MaxCartValue:    orderMaxValue,
		NameSuffix:      orderNameSuffix,
		Concurrency:     concurrency,
		RepetitionCount: orderReps,
		Headless:        cfg.General.Headless,
		Mode:            mode,
	}
	if err := orderCfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := svc.Registry().CreateTask(domain.KindOrderRun, orderCfg.RangeStart, orderCfg.RangeEnd, orderCfg.Concurrency)
	if err := svc.RunBulkOrder(ctx, task, orderCfg); err != nil {
		return err
	}
	printTaskSummary(svc, task.ID)
	return nil
}

func runCheckpoint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, _, cleanup, err := buildService(cfg, orchestrator.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	concurrency := checkpointConcurrency
	if concurrency == 0 {
		concurrency = cfg.General.MaxConcurrent
	}

	checkpointCfg := domain.CheckpointConfig{
		RangeStart:  checkpointStart,
		RangeEnd:    checkpointEnd,
		Concurrency: concurrency,
		Headless:    true,
	}
	if err := checkpointCfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := svc.Registry().CreateTask(domain.KindCheckpointRun, checkpointCfg.RangeStart, checkpointCfg.RangeEnd, checkpointCfg.Concurrency)
	if err := svc.RunBulkCheckpoint(ctx, task, checkpointCfg); err != nil {
		return err
	}
	printTaskSummary(svc, task.ID)
	return nil
}

func printTaskSummary(svc *orchestrator.Service, taskID string) {
	task, ok := svc.Registry().Status(taskID)
	if !ok {
		return
	}
	fmt.Printf("Task %s: %s\n", task.ID, task.Status)
	fmt.Printf("  processed: %d/%d, succeeded: %d, failed: %d\n",
		task.Processed, task.Total, task.Succeeded, task.Failed)
	if task.PointsSum > 0 {
		fmt.Printf("  points: %s\n", humanize.CommafWithDigits(task.PointsSum, 2))
	}
	if task.Err != "" {
		fmt.Printf("  error: %s\n", task.Err)
	}

	results, _ := svc.Registry().Results(taskID)
	for _, oc := range results {
		marker := "ok"
		detail := oc.Confirmation
		if !oc.Succeeded() {
			marker = "FAIL"
			detail = oc.Error
		}
		fmt.Printf("  [%s] account %d (%s): %s\n", marker, oc.AccountID, oc.AccountName, detail)
	}
}

func serverBase(cfg *config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.Web.Host, cfg.Web.Port)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}

	if len(args) == 1 {
		return printRemoteTask(client, serverBase(cfg), args[0])
	}

	resp, err := client.Get(serverBase(cfg) + "/api/tasks")
	if err != nil {
		return fmt.Errorf("is the server running? %w", err)
	}
	defer resp.Body.Close()

	var tasks []struct {
		ID        string `json:"task_id"`
		Kind      string `json:"kind"`
		Status    string `json:"status"`
		Total     int    `json:"total"`
		Processed int    `json:"processed"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tKIND\tSTATUS\tPROGRESS\tOK\tFAIL\tAGE")
	for _, t := range tasks {
		age := t.CreatedAt
		if created, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
			age = humanize.Time(created)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
			t.ID[:8], t.Kind, t.Status, t.Processed, t.Total, t.Succeeded, t.Failed, age)
	}
	return w.Flush()
}

// printRemoteTask fetches one task from the server and prints its counters.
func printRemoteTask(client *http.Client, base, taskID string) error {
	resp, err := client.Get(base + "/api/tasks/" + taskID + "/status")
	if err != nil {
		return fmt.Errorf("is the server running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("task %s not found", taskID)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var t struct {
		ID        string  `json:"task_id"`
		Kind      string  `json:"kind"`
		Status    string  `json:"status"`
		Total     int     `json:"total"`
		Processed int     `json:"processed"`
		Succeeded int     `json:"succeeded"`
		Failed    int     `json:"failed"`
		PointsSum float64 `json:"points_sum"`
		Err       string  `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return err
	}

	fmt.Printf("Task %s (%s): %s\n", t.ID, t.Kind, t.Status)
	fmt.Printf("  processed: %d/%d, succeeded: %d, failed: %d\n",
		t.Processed, t.Total, t.Succeeded, t.Failed)
	if t.PointsSum > 0 {
		fmt.Printf("  points: %s\n", humanize.CommafWithDigits(t.PointsSum, 2))
	}
	if t.Err != "" {
		fmt.Printf("  error: %s\n", t.Err)
	}
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	logs, err := st.LogsForSession(args[0])
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Println("No logs for session", args[0])
		return nil
	}
	for _, ev := range logs {
		fmt.Printf("%s [%s] %s: %s\n",
			ev.Timestamp.Format("15:04:05"), ev.Level, ev.Step, ev.Message)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return tui.Run(serverBase(cfg))
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportSeed(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d accounts\n", n)
	return nil
}

// startSweeps wires the configured sweeps to the checkpoint workflow.
func startSweeps(ctx context.Context, cfg *config.Config, svc *orchestrator.Service) (*batch.Scheduler, error) {
	if len(cfg.Sweeps) == 0 {
		return nil, nil
	}
	sched, err := batch.NewScheduler(cfg.Sweeps)
	if err != nil {
		return nil, err
	}
	go sched.Run(ctx, func(ctx context.Context, name string, ccfg domain.CheckpointConfig) error {
		task, err := svc.StartBulkCheckpoint(ctx, ccfg)
		if err != nil {
			return err
		}
		log.Printf("sweep %q dispatched task %s", name, task.ID)
		return nil
	})
	return sched, nil
}
