package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/driftsync-io/driftsync/cmd"
	"github.com/driftsync-io/driftsync/pkg/sync"
)

const (
	// automaticRetryLimit is the number of automatic retries before a
	// failing item is skipped in batch operation.
	automaticRetryLimit = 2
)

// consoleCallback renders synchronization progress on the console and
// applies batch-mode error policy: failing items retry a bounded number of
// times and are then skipped with a visible error.
type consoleCallback struct {
	// totalItems and totalBytes accumulate the expected workload.
	totalItems, totalBytes int64
	// processedItems and processedBytes accumulate completed work.
	processedItems, processedBytes int64
	// errorCount counts skipped items.
	errorCount int64
}

// SetPhase implements sync.ProcessCallback.SetPhase.
func (c *consoleCallback) SetPhase(phase sync.Phase) error {
	fmt.Printf("Phase: %s\n", phase)
	return nil
}

// UpdateTotalData implements sync.ProcessCallback.UpdateTotalData.
func (c *consoleCallback) UpdateTotalData(itemsDelta, bytesDelta int64) error {
	c.totalItems += itemsDelta
	c.totalBytes += bytesDelta
	return nil
}

// UpdateProcessedData implements sync.ProcessCallback.UpdateProcessedData.
func (c *consoleCallback) UpdateProcessedData(itemsDelta, bytesDelta int64) error {
	c.processedItems += itemsDelta
	c.processedBytes += bytesDelta
	return nil
}

// ReportStatus implements sync.ProcessCallback.ReportStatus.
func (c *consoleCallback) ReportStatus(text string) error {
	fmt.Printf("%s (%d/%d items, %s/%s)\n",
		text,
		c.processedItems, c.totalItems,
		humanize.IBytes(uint64(c.processedBytes)), humanize.IBytes(uint64(c.totalBytes)),
	)
	return nil
}

// ReportInfo implements sync.ProcessCallback.ReportInfo.
func (c *consoleCallback) ReportInfo(text string) error {
	fmt.Println(text)
	return nil
}

// ReportWarning implements sync.ProcessCallback.ReportWarning.
func (c *consoleCallback) ReportWarning(text string, suppress *bool) error {
	cmd.Warning(text)
	return nil
}

// ReportError implements sync.ProcessCallback.ReportError.
func (c *consoleCallback) ReportError(text string, retryCount int) (sync.ErrorResponse, error) {
	if retryCount < automaticRetryLimit {
		return sync.ErrorRetry, nil
	}
	c.errorCount++
	fmt.Fprintln(os.Stderr, color.RedString("Error:"), text)
	return sync.ErrorIgnore, nil
}

// ReportFatalError implements sync.ProcessCallback.ReportFatalError.
func (c *consoleCallback) ReportFatalError(text string) error {
	c.errorCount++
	fmt.Fprintln(os.Stderr, color.RedString("Fatal:"), text)
	return nil
}

// RequestUIRefresh implements sync.ProcessCallback.RequestUIRefresh.
func (c *consoleCallback) RequestUIRefresh() error {
	return nil
}

// ForceUIRefresh implements sync.ProcessCallback.ForceUIRefresh.
func (c *consoleCallback) ForceUIRefresh() error {
	return nil
}
