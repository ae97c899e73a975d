package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
)

// RunExportAuditReport exports a security report for a time range in JSON or
// CSV format. The report is written to outputPath when set, otherwise to writer.
//
// Requirements: Database must be migrated and accessible.
func RunExportAuditReport(
	ctx context.Context,
	useCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	startDate, endDate string,
	format string,
	outputPath string,
) error {
	start, err := parseDate(startDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	end, err := parseDate(endDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	if !end.After(start) {
		return fmt.Errorf("end date must be after start date")
	}

	if format != "json" && format != "csv" {
		return fmt.Errorf("invalid format: %s (valid options: json, csv)", format)
	}

	logger.Info("exporting audit report",
		slog.Time("start_date", start),
		slog.Time("end_date", end),
		slog.String("format", format),
	)

	report, err := useCase.ExportReport(ctx, format, start, end)
	if err != nil {
		return fmt.Errorf("failed to export audit report: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, report, 0o600); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
		_, _ = fmt.Fprintf(writer, "Report written to %s (%d bytes)\n", outputPath, len(report))
	} else {
		_, _ = writer.Write(report)
	}

	logger.Info("export completed", slog.Int("bytes", len(report)))

	return nil
}
