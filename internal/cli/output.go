package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"hospital-queue/internal/models"

	"github.com/spf13/cobra"
)

type output struct {
	format string
	w      io.Writer
}

func newOutput(cmd *cobra.Command, format string) *output {
	return &output{format: format, w: cmd.OutOrStdout()}
}

func (o *output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *output) queue(v *models.QueueStatusView) error {
	if o.format == "json" {
		return o.json(v)
	}

	status := string(v.Status)
	if v.Delayed {
		status += fmt.Sprintf(" (delayed %dm)", v.DelayMinutes)
	}
	fmt.Fprintf(o.w, "Queue %s\n", v.QueueID)
	fmt.Fprintf(o.w, "  status:       %s\n", status)
	fmt.Fprintf(o.w, "  service time: %dm\n", v.AverageServiceTimeMinutes)
	fmt.Fprintf(o.w, "  now serving:  %d\n", v.NowServing)
	fmt.Fprintf(o.w, "  waiting:      %d of %d issued\n", v.Length, v.TotalIssued)

	if len(v.Entries) == 0 {
		return nil
	}
	fmt.Fprintf(o.w, "\n  %-6s %-4s %-12s %s\n", "TOKEN", "POS", "STATUS", "WAIT")
	for _, e := range v.Entries {
		fmt.Fprintf(o.w, "  %-6d %-4d %-12s %dm\n", e.TokenNumber, e.QueuePosition, e.Status, e.EstimatedWaitTimeMinutes)
	}
	return nil
}

func (o *output) token(t *models.Token) error {
	if o.format == "json" {
		return o.json(t)
	}
	fmt.Fprintf(o.w, "Token #%d (%s) is now %s\n", t.TokenNumber, t.ID, t.Status)
	return nil
}
