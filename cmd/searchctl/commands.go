package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/proto"
)

type options struct {
	addr    string
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "searchctl",
		Short:        "Query and operate the catalog search daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", envOr("SEARCHCTL_ADDR", "http://localhost:8080"), "search daemon base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")

	root.AddCommand(
		newSearchCmd(opts),
		newSuggestCmd(opts),
		newStatsCmd(opts),
		newReindexCmd(opts),
		newJobsCmd(opts),
		newJobCmd(opts),
		newNotifyCmd(opts),
		newBenchCmd(opts),
	)
	return root
}

func (o *options) client() *client {
	return newClient(o.addr, o.timeout)
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		collections []string
		limit       int
		offset      int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a ranked full-text search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("q", strings.Join(args, " "))
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			for _, c := range collections {
				q.Add("collections", c)
			}
			if opts.json {
				return printRaw(cmd, opts, "/api/v1/search", q)
			}
			var resp proto.SearchResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/search", q, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d matches for %q (generation %d, %dms)\n", resp.Total, resp.Query, resp.Generation, resp.LatencyMs)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tREF\tTITLE\tSCORE\tMATCHED")
			for i, h := range resp.Hits {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%s\n", resp.Offset+i+1, h.Ref, h.Title, h.Score, strings.Join(h.MatchedTerms, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVarP(&collections, "collection", "c", nil, "restrict to collections (repeatable or comma-separated)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newSuggestCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Complete a term prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"prefix": {args[0]}, "limit": {strconv.Itoa(limit)}}
			if opts.json {
				return printRaw(cmd, opts, "/api/v1/search/suggest", q)
			}
			var resp proto.SuggestResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/search/suggest", q, &resp); err != nil {
				return err
			}
			for _, s := range resp.Suggestions {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum suggestions")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics of the published index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				return printRaw(cmd, opts, "/api/v1/search/stats", nil)
			}
			var st proto.StatsResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/search/stats", nil, &st); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "generation:  %d\n", st.Generation)
			fmt.Fprintf(out, "documents:   %d\n", st.TotalDocuments)
			fmt.Fprintf(out, "terms:       %d\n", st.TotalTerms)
			fmt.Fprintf(out, "tokens:      %d\n", st.TotalTokens)
			if st.LastBuiltAt != nil {
				fmt.Fprintf(out, "built at:    %s (%dms)\n", st.LastBuiltAt.Format(time.RFC3339), st.LastBuildDurationMs)
			}
			if st.LastJob != nil {
				fmt.Fprintf(out, "last build:  %s %s, %d record errors\n", st.LastJob.Scope, st.LastJob.State, st.RecordErrors)
			}
			names := make([]string, 0, len(st.PerCollectionCounts))
			for name := range st.PerCollectionCounts {
				names = append(names, name)
			}
			slices.Sort(names)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLLECTION\tDOCUMENTS")
			for _, name := range names {
				fmt.Fprintf(tw, "%s\t%d\n", name, st.PerCollectionCounts[name])
			}
			return tw.Flush()
		},
	}
}

func newReindexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [collection...]",
		Short: "Rebuild the named collections, or everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ack proto.JobAck
			if err := opts.client().post(cmd.Context(), "/api/v1/search/reindex", proto.ReindexRequest{Collections: args}, &ack); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), ack)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted %s reindex job %s\n", ack.Scope, ack.JobID)
			return nil
		},
	}
}

func newJobsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent reindex jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"limit": {strconv.Itoa(limit)}}
			if opts.json {
				return printRaw(cmd, opts, "/api/v1/search/jobs", q)
			}
			var resp proto.JobsResponse
			if err := opts.client().get(cmd.Context(), "/api/v1/search/jobs", q, &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCOPE\tTARGET\tSTATE\tINDEXED\tREMOVED\tSKIPPED\tGENERATION")
			for _, j := range resp.Jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					j.ID, j.Scope, jobTarget(j), j.State, j.Indexed, j.Removed, j.Skipped, j.Generation)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum jobs")
	return cmd
}

func newJobCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show one reindex job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job proto.Job
			if err := opts.client().get(cmd.Context(), "/api/v1/search/jobs/"+url.PathEscape(args[0]), nil, &job); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
}

func newNotifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <collection> <id> <create|update|delete>",
		Short: "Announce a committed change to one record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := proto.NotifyRequest{Collection: args[0], ID: args[1], Operation: args[2]}
			var ack proto.JobAck
			if err := opts.client().post(cmd.Context(), "/api/v1/changes", req, &ack); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), ack)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued job %s at seq %d\n", ack.JobID, ack.Seq)
			return nil
		},
	}
}

func jobTarget(j proto.Job) string {
	if j.Ref != nil {
		return j.Ref.Collection + ":" + j.Ref.ID
	}
	if j.Scope == "full" {
		return "*"
	}
	return strings.Join(j.Collections, ",")
}

func printRaw(cmd *cobra.Command, opts *options, path string, q url.Values) error {
	var raw json.RawMessage
	if err := opts.client().get(cmd.Context(), path, q, &raw); err != nil {
		return err
	}
	_, err := cmd.OutOrStdout().Write(raw)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
