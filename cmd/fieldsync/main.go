// Command fieldsync is the technician device agent. It captures photos,
// queues them while offline and replays the queue once the network is back.
package main

import (
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"hvac_dispatch_backend/internal/offline"
	"hvac_dispatch_backend/internal/offline/syncer"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	env        string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "fieldsync",
		Short:        "Offline photo queue for field technicians",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "fieldsync.yaml", "path to the agent config file")
	cmd.PersistentFlags().StringVar(&opts.env, "env", "production", "log format (development or production)")

	cmd.AddCommand(
		newEnqueueCommand(opts),
		newListCommand(opts),
		newSyncCommand(opts),
		newWatchCommand(opts),
		newDiscardCommand(opts),
	)
	return cmd
}

func openAgent(opts *rootOptions) (*offline.Agent, error) {
	cfg, err := offline.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	return offline.Open(cfg, logger.New(opts.env))
}

func newEnqueueCommand(opts *rootOptions) *cobra.Command {
	var (
		jobID       string
		file        string
		description string
		replacesID  string
		latitude    float64
		longitude   float64
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Upload a photo, or queue it when the server is unreachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := uuid.Parse(jobID)
			if err != nil {
				return fmt.Errorf("invalid --job: %w", err)
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}

			capture := offline.Capture{
				JobID:       job,
				Description: description,
				ContentType: contentTypeFor(file),
				Data:        data,
			}
			if replacesID != "" {
				id, err := uuid.Parse(replacesID)
				if err != nil {
					return fmt.Errorf("invalid --replaces: %w", err)
				}
				capture.ReplacesID = &id
			}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				capture.Latitude = &latitude
				capture.Longitude = &longitude
			}

			agent, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			res, err := agent.Capture(cmd.Context(), capture)
			if err != nil {
				return err
			}
			if res.Uploaded {
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded photo %s\n", res.PhotoID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued photo %s for later sync\n", res.LocalID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&jobID, "job", "j", "", "job id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "photo file")
	cmd.Flags().StringVarP(&description, "description", "d", "", "photo description")
	cmd.Flags().StringVar(&replacesID, "replaces", "", "id of a rejected photo this one replaces")
	cmd.Flags().Float64Var(&latitude, "lat", 0, "capture latitude")
	cmd.Flags().Float64Var(&longitude, "lng", 0, "capture longitude")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show queued photos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			items, err := agent.Queue().List()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tJOB\tCAPTURED\tSIZE\tATTEMPTS\tLAST ERROR")
			for _, item := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					item.ID, item.JobID, item.CreatedAt.Local().Format(time.DateTime),
					len(item.Data), item.Attempts, item.LastError)
			}
			return tw.Flush()
		},
	}
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass over the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			res, err := agent.Sync(cmd.Context(), printProgress(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d of %d, %d failed\n", res.Synced, res.Total, res.Failed)
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync automatically whenever the device comes back online",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return agent.Watch(ctx, printProgress(cmd))
		},
	}
}

func newDiscardCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Drop a queued photo the server will never accept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}
			agent, err := openAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			if err := agent.Queue().Remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", id)
			return nil
		},
	}
}

func printProgress(cmd *cobra.Command) func(syncer.Progress) {
	out := cmd.OutOrStdout()
	return func(p syncer.Progress) {
		if p.Err != nil {
			fmt.Fprintf(out, "[%d/%d] %s failed: %v\n", p.Synced+p.Failed, p.Total, p.ItemID, p.Err)
			return
		}
		fmt.Fprintf(out, "[%d/%d] %s synced\n", p.Synced+p.Failed, p.Total, p.ItemID)
	}
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "image/jpeg"
}
