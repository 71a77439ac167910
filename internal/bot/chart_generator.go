package bot

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

var errNothingToChart = errors.New("no amounts to chart")

// GenerateSummaryChart creates a pie chart of what each person owes.
// People who owe nothing are left out. Returns PNG image as bytes.
func GenerateSummaryChart(summary []models.PersonTotal, title string) ([]byte, error) {
	var values []float64
	var names []string
	for _, person := range summary {
		if person.Total <= 0 {
			continue
		}
		names = append(names, fmt.Sprintf("%s (%s)", person.Name, formatMoney(person.Total)))
		values = append(values, person.Total)
	}
	if len(values) == 0 {
		return nil, errNothingToChart
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: title,
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}
