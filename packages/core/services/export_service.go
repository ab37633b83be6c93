package services

import (
	"bytes"
	"context"
	"fmt"

	"core/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

// ExportService renders closed round results for organisers.
type ExportService struct {
	elimination *EliminationService
}

func NewExportService(elimination *EliminationService) *ExportService {
	return &ExportService{
		elimination: elimination,
	}
}

// ExportRoundResults builds an XLSX workbook with one row per ranked team.
func (s *ExportService) ExportRoundResults(ctx context.Context, roundID uint) ([]byte, error) {
	results, err := s.elimination.GetEliminationResults(ctx, roundID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"Rank", "Team", "Average", "Status"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range results.Results {
		row := []interface{}{r.Rank, r.Team.Name, r.AverageScore, resultStatus(r, results.IsFinalRound)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(resultsSheet, "B", "B", 32); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func resultStatus(r models.RoundResult, final bool) string {
	switch {
	case final && r.Rank == 1:
		return "winner"
	case final:
		return "finalist"
	case r.IsInDanger:
		return "eliminated"
	default:
		return "through"
	}
}

// RenderRoundChart draws the rounded averages of a closed round as a PNG bar
// chart, best team on the left.
func (s *ExportService) RenderRoundChart(ctx context.Context, roundID uint) ([]byte, error) {
	results, err := s.elimination.GetEliminationResults(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if len(results.Results) == 0 {
		return renderPlaceholder(fmt.Sprintf("No teams were scored in round %d", roundID))
	}

	bars := make([]chart.Value, 0, len(results.Results))
	top := 1.0
	for _, r := range results.Results {
		value := float64(r.AverageScore)
		if value > top {
			top = value
		}
		color := drawing.ColorFromHex("2e7d32")
		if r.IsInDanger {
			color = drawing.ColorFromHex("c62828")
		}
		bars = append(bars, chart.Value{
			Label: r.Team.Name,
			Value: value,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Round %d results", roundID),
		Width:      160 + 100*len(bars),
		Height:     480,
		BarWidth:   60,
		BarSpacing: 30,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// renderPlaceholder draws an empty chart titled with msg. BarChart needs at
// least one bar and a non-zero range, so it gets one invisible zero bar.
func renderPlaceholder(msg string) ([]byte, error) {
	graph := chart.BarChart{
		Title:    msg,
		Width:    400,
		Height:   200,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Bars: []chart.Value{{
			Label: "-",
			Value: 0,
			Style: chart.Style{FillColor: drawing.ColorTransparent, StrokeColor: drawing.ColorTransparent},
		}},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buffer.Bytes(), nil
}
