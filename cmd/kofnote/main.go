// Command kofnote is the CLI entrypoint standing in for the external
// desktop-shell dispatcher that spec.md §1 treats as out of scope: each
// subcommand is a thin adapter over internal/workspace, internal/records,
// internal/searchindex, internal/debate, internal/sync, and internal/health.
// No business logic lives here.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kofnote/internal/ancillary"
	"kofnote/internal/debate"
	"kofnote/internal/health"
	"kofnote/internal/records"
	"kofnote/internal/searchindex"
	"kofnote/internal/settings"
	"kofnote/internal/sync"
	"kofnote/internal/workspace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var home string

	root := &cobra.Command{
		Use:           "kofnote",
		Short:         "Local-first workspace engine: records, search, debate, and sync",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&home, "home", "", "Central Home path (defaults to the active settings profile, then cwd)")

	resolveHome := func() (string, error) {
		input := home
		if input == "" {
			if s, err := settings.Load(); err == nil {
				for _, p := range s.Profiles {
					if p.ID == s.ActiveProfileID && p.CentralHome != "" {
						input = p.CentralHome
						break
					}
				}
			}
		}
		if input == "" {
			input = "."
		}
		resolved, err := workspace.ResolveHome(input)
		if err != nil {
			return "", err
		}
		return resolved.CentralHome, nil
	}

	root.AddCommand(
		newWorkspaceCmd(&resolveHome),
		newRecordsCmd(&resolveHome),
		newSearchCmd(&resolveHome),
		newIndexCmd(&resolveHome),
		newDebateCmd(&resolveHome),
		newSyncCmd(&resolveHome),
		newHealthCmd(&resolveHome),
		newDashboardCmd(&resolveHome),
	)
	return root
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newWorkspaceCmd(resolveHome *func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{Use: "workspace", Short: "Resolve and bootstrap a Central Home"}

	resolveCmd := &cobra.Command{
		Use:   "resolve [path]",
		Short: "Resolve the Central Home for a given path (or the active profile)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "."
			if len(args) == 1 {
				input = args[0]
			}
			resolved, err := workspace.ResolveHome(input)
			if err != nil {
				return err
			}
			return printJSON(resolved)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Resolve a Central Home and ensure its directory skeleton exists",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "."
			if len(args) == 1 {
				input = args[0]
			}
			resolved, err := workspace.ResolveHome(input)
			if err != nil {
				return err
			}
			if err := workspace.EnsureStructure(resolved.CentralHome); err != nil {
				return err
			}
			return printJSON(resolved)
		},
	}

	cmd.AddCommand(resolveCmd, initCmd)
	return cmd
}

func openStore(home string) (*records.Store, *searchindex.Index) {
	index := searchindex.New(home)
	store := records.Open(home, index)
	return store, index
}

func newRecordsCmd(resolveHome *func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{Use: "records", Short: "List, upsert, and delete workspace records"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every record across all type directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			recs, err := store.List()
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}

	var (
		recordType string
		title      string
		sourceText string
		finalBody  string
		tags       []string
		date       string
		priorPath  string
	)
	upsertCmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			payload := records.Record{
				Type:       recordType,
				Title:      title,
				SourceText: sourceText,
				FinalBody:  finalBody,
				Tags:       tags,
				Date:       date,
			}
			saved, err := store.Upsert(payload, priorPath)
			if err != nil {
				return err
			}
			return printJSON(saved)
		},
	}
	upsertCmd.Flags().StringVar(&recordType, "type", "note", "record_type (decision|worklog|idea|backlog|note)")
	upsertCmd.Flags().StringVar(&title, "title", "", "record title")
	upsertCmd.Flags().StringVar(&sourceText, "source", "", "original input text")
	upsertCmd.Flags().StringVar(&finalBody, "body", "", "rendered final body")
	upsertCmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	upsertCmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD")
	upsertCmd.Flags().StringVar(&priorPath, "prior-path", "", "structured_path of the record being updated")

	deleteCmd := &cobra.Command{
		Use:   "delete <structured_path>",
		Short: "Delete a record's pair of files and its index row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			return store.Delete(args[0])
		},
	}

	cmd.AddCommand(listCmd, upsertCmd, deleteCmd)
	return cmd
}

func newSearchCmd(resolveHome *func() (string, error)) *cobra.Command {
	var (
		query      string
		recordType string
		dateFrom   string
		dateTo     string
		limit      int
		offset     int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Query records by structured filter and/or ranked full text",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			_, index := openStore(home)
			result, err := index.Search(searchindex.SearchParams{
				Query:      query,
				RecordType: recordType,
				DateFrom:   dateFrom,
				DateTo:     dateTo,
				Limit:      limit,
				Offset:     offset,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "full-text query (empty hits the filesystem path)")
	cmd.Flags().StringVar(&recordType, "type", "", "record_type filter")
	cmd.Flags().StringVar(&dateFrom, "date-from", "", "YYYY-MM-DD lower bound")
	cmd.Flags().StringVar(&dateTo, "date-to", "", "YYYY-MM-DD upper bound")
	cmd.Flags().IntVar(&limit, "limit", 50, "result limit [1,1000]")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")
	return cmd
}

func newIndexCmd(resolveHome *func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{Use: "index", Short: "Manage the on-disk search catalog"}
	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Wipe and reinsert every record into the search catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, index := openStore(home)
			recs, err := store.List()
			if err != nil {
				return err
			}
			n, err := index.Rebuild(recs)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %s record(s)\n", humanize.Comma(int64(n)))
			return nil
		},
	}
	cmd.AddCommand(rebuildCmd)
	return cmd
}

func newDebateCmd(resolveHome *func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{Use: "debate", Short: "Run and replay multi-agent debates"}

	var requestPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a debate from a request JSON file (or stdin with --request -)",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			var raw []byte
			if requestPath == "-" || requestPath == "" {
				raw, err = io.ReadAll(os.Stdin)
			} else {
				raw, err = os.ReadFile(requestPath)
			}
			if err != nil {
				return err
			}
			var req debate.Request
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("invalid request JSON: %w", err)
			}

			store, index := openStore(home)
			s, err := settings.Load()
			if err != nil {
				return err
			}
			engine := debate.NewEngine(home, store, index, s.ProviderRegistry)
			resp, err := engine.Run(context.Background(), req)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	runCmd.Flags().StringVar(&requestPath, "request", "-", "path to a debate request JSON file, or - for stdin")

	replayCmd := &cobra.Command{
		Use:   "replay <run_id>",
		Short: "Reconstruct a debate run's consistency report from its artifact tree and catalog rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, index := openStore(home)
			result, err := debate.Replay(home, index, store, args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.AddCommand(runCmd, replayCmd)
	return cmd
}

func newSyncCmd(resolveHome *func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{Use: "sync", Short: "Bidirectional sync against the remote notes database"}

	var (
		policyFlag string
		dbID       string
	)
	cmd.PersistentFlags().StringVar(&policyFlag, "policy", "manual", "conflict policy: manual|local_wins|remote_wins (aliases: local, notion, remote)")
	cmd.PersistentFlags().StringVar(&dbID, "database-id", "", "remote database id (defaults to settings.integrations.notion.databaseId)")

	resolveDBAndClient := func() (*sync.Client, string, error) {
		s, err := settings.Load()
		if err != nil {
			return nil, "", err
		}
		databaseID := dbID
		if databaseID == "" {
			databaseID = s.Integrations.Notion.DatabaseID
		}
		apiKey := os.Getenv("NOTION_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("Missing Notion API key. Set NOTION_API_KEY first.")
		}
		return sync.NewClient(apiKey), databaseID, nil
	}

	pushCmd := &cobra.Command{
		Use:   "push <structured_path>",
		Short: "One-way push a single record to the remote database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			client, databaseID, err := resolveDBAndClient()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			engine := sync.NewEngine(store)
			result, err := engine.Push(cmd.Context(), client, args[0], databaseID, sync.NormalizePolicy(policyFlag))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	bidiCmd := &cobra.Command{
		Use:   "bidirectional <structured_path>",
		Short: "Reconcile one record against the remote using the two-watermark decision matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			client, databaseID, err := resolveDBAndClient()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			engine := sync.NewEngine(store)
			result, err := engine.Bidirectional(cmd.Context(), client, args[0], databaseID, sync.NormalizePolicy(policyFlag))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull and reconcile every page in the remote database",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			client, databaseID, err := resolveDBAndClient()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			engine := sync.NewEngine(store)
			result, err := engine.PullAll(cmd.Context(), client, databaseID, sync.NormalizePolicy(policyFlag))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.AddCommand(pushCmd, bidiCmd, pullCmd)
	return cmd
}

func newHealthCmd(resolveHome *func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report workspace diagnostics and a stable content fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, index := openStore(home)
			recs, err := store.List()
			if err != nil {
				return err
			}
			logs, err := store.LoadLogs()
			if err != nil {
				return err
			}
			s, err := settings.Load()
			if err != nil {
				return err
			}
			fp := health.GetFingerprint(home, recs, logs)
			diag := health.GetHealth(home, recs, logs, index, s)
			return printJSON(struct {
				Fingerprint health.Fingerprint `json:"fingerprint"`
				Diagnostics health.Diagnostics `json:"diagnostics"`
			}{fp, diag})
		},
	}
}

func newDashboardCmd(resolveHome *func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{Use: "dashboard", Short: "Ancillary reductions over the workspace (out of core)"}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Tag/type/sync-status/daily tallies over every record and log",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			recs, err := store.List()
			if err != nil {
				return err
			}
			logs, err := store.LoadLogs()
			if err != nil {
				return err
			}
			return printJSON(ancillary.ComputeDashboardStats(recs, logs, time.Now()))
		},
	}

	var (
		reportDays  int
		reportTitle string
	)
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render and write a markdown snapshot report under assets/reports/",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			recs, err := store.List()
			if err != nil {
				return err
			}
			logs, err := store.LoadLogs()
			if err != nil {
				return err
			}
			now := time.Now()
			stats := ancillary.ComputeDashboardStats(recs, logs, now)
			recent := recs
			if len(recent) > 10 {
				recent = recent[:10]
			}
			content := ancillary.BuildReport(reportTitle, home, stats, recent, reportDays, now)
			path, err := ancillary.WriteReport(home, content, now)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "trailing days covered by the report's recent-records section")
	reportCmd.Flags().StringVar(&reportTitle, "title", "Workspace Report", "report heading")

	var analysisPrompt string
	analysisCmd := &cobra.Command{
		Use:   "analysis",
		Short: "Deterministic local text reduction over records and logs (no hosted model call)",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := (*resolveHome)()
			if err != nil {
				return err
			}
			store, _ := openStore(home)
			recs, err := store.List()
			if err != nil {
				return err
			}
			logs, err := store.LoadLogs()
			if err != nil {
				return err
			}
			fmt.Println(ancillary.LocalAnalysis(analysisPrompt, recs, logs, time.Now()))
			return nil
		},
	}
	analysisCmd.Flags().StringVar(&analysisPrompt, "prompt", "", "optional focus prompt")

	cmd.AddCommand(statsCmd, reportCmd, analysisCmd)
	return cmd
}
