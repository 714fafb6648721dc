package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campus-hub/campus-event-hub/internal/application/query"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/pkg/timeutil"
)

type reportOptions struct {
	collegeID string
	eventType string
	status    string
	startDate string
	endDate   string
	limit     int
}

var reportFlags reportOptions

var reportCmd = &cobra.Command{
	Use:   "report <kind>",
	Short: "Generate one report and print it as JSON",
	Long:  "Generate one report against the configured store and print it as JSON.\n\nKinds: " + kindList(),
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.collegeID, "college", "", "restrict to one college ID")
	f.StringVar(&reportFlags.eventType, "event-type", "", "restrict to one event type")
	f.StringVar(&reportFlags.status, "status", "", "restrict to one event status")
	f.StringVar(&reportFlags.startDate, "from", "", "earliest event start (YYYY-MM-DD or RFC3339)")
	f.StringVar(&reportFlags.endDate, "until", "", "latest event end (YYYY-MM-DD or RFC3339)")
	f.IntVar(&reportFlags.limit, "limit", 0, "maximum rows, 0 for the report default")
}

func kindList() string {
	names := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func runReport(cmd *cobra.Command, args []string) error {
	filter, err := reportFilterFromFlags()
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.reports.Handle(ctx, query.GetReportQuery{Kind: args[0], Filter: filter})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func reportFilterFromFlags() (report.Filter, error) {
	f := report.Filter{
		CollegeID: reportFlags.collegeID,
		EventType: reportFlags.eventType,
		Status:    event.Status(reportFlags.status),
		Limit:     reportFlags.limit,
	}
	var err error
	if f.StartDate, err = timeutil.ParseBound(reportFlags.startDate, false); err != nil {
		return f, fmt.Errorf("--from: %w", err)
	}
	if f.EndDate, err = timeutil.ParseBound(reportFlags.endDate, true); err != nil {
		return f, fmt.Errorf("--until: %w", err)
	}
	return f, f.Validate()
}

