package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netfile/campaign-sync/internal/api"
	"github.com/netfile/campaign-sync/internal/syncer"
)

// FormatSuccessMessage creates a success notification body.
func FormatSuccessMessage(result *syncer.BatchResult, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Targets: %d\n", result.Total))
	sb.WriteString(fmt.Sprintf("Synced: %d\n", result.Succeeded))
	sb.WriteString(fmt.Sprintf("Not Ready: %d\n", result.NotReady))
	sb.WriteString(fmt.Sprintf("Records: %d\n", result.Records()))
	writeTargets(&sb, result)
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	return sb.String()
}

// FormatFailureMessage creates a failure notification body.
func FormatFailureMessage(result *syncer.BatchResult, duration time.Duration, err error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Targets: %d\n", result.Total))
	sb.WriteString(fmt.Sprintf("Synced: %d\n", result.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Not Ready: %d\n", result.NotReady))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	if err != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", err))
	}

	// Include first 3 error messages if available
	if len(result.Errors) > 0 {
		sb.WriteString("\n\nErrors:\n")
		limit := min(3, len(result.Errors))
		for i := 0; i < limit; i++ {
			sb.WriteString(fmt.Sprintf("- %s\n", result.Errors[i]))
		}
		if len(result.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("... and %d more errors", len(result.Errors)-3))
		}
	}

	return sb.String()
}

func writeTargets(sb *strings.Builder, result *syncer.BatchResult) {
	for _, r := range result.Results {
		if r.Result == nil || r.Err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %d records in %d sessions\n", r.Target, r.Result.Records(), r.Result.SessionsCompleted))
	}
}

// FormatNotReadyMessage lists the targets whose server was not ready.
func FormatNotReadyMessage(result *syncer.BatchResult, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Targets: %d\n", result.Total))
	sb.WriteString(fmt.Sprintf("Synced: %d\n", result.Succeeded))
	sb.WriteString(fmt.Sprintf("Not Ready: %d\n", result.NotReady))
	for _, r := range result.Results {
		var notReady *api.NotReadyError
		if errors.As(r.Err, &notReady) {
			sb.WriteString(fmt.Sprintf("- %s: server status %s\n", r.Target, notReady.Status))
		}
	}
	writeTargets(&sb, result)
	sb.WriteString("Retrying at the next interval\n")
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	return sb.String()
}
