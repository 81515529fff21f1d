package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/kpiboard/internal/domain/kpi"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score metrics records from a file",
	Long: "Reads a YAML or JSON list of {sales_id, name, metrics, stages} records, scores each one " +
		"and prints the ranked table followed by the team summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := readScoreFile(scoreFile)
		if err != nil {
			return err
		}
		return renderScores(cmd.OutOrStdout(), rankRecords(records), scoreCurrency, scoreLocale)
	},
}

var (
	scoreFile     string
	scoreCurrency string
	scoreLocale   string
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "Path to a YAML or JSON metrics file (required)")
	scoreCmd.Flags().StringVar(&scoreCurrency, "currency", kpi.DefaultCurrencySymbol, "Currency symbol for the team summary")
	scoreCmd.Flags().StringVar(&scoreLocale, "locale", "id", "Locale used to group currency digits")
	if err := scoreCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}
	rootCmd.AddCommand(scoreCmd)
}

type scoreRecord struct {
	SalesID string      `json:"sales_id" yaml:"sales_id"`
	Name    string      `json:"name" yaml:"name"`
	Metrics kpi.Metrics `json:"metrics" yaml:"metrics"`
	Stages  []int       `json:"stages" yaml:"stages"`
}

type scoredRecord struct {
	scoreRecord
	Rank   int
	Result kpi.Result
}

func readScoreFile(path string) ([]scoreRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file %s: %w", path, err)
	}
	var records []scoreRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	default:
		err = yaml.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics file %s: %w", path, err)
	}
	for i := range records {
		if records[i].SalesID == "" {
			records[i].SalesID = strconv.Itoa(i + 1)
		}
	}
	return records, nil
}

// rankRecords scores every record and orders them by composite descending,
// then id, with dense ranks.
func rankRecords(records []scoreRecord) []scoredRecord {
	out := make([]scoredRecord, len(records))
	for i, r := range records {
		out[i] = scoredRecord{scoreRecord: r, Result: kpi.Score(r.Metrics)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Result.Composite != out[j].Result.Composite {
			return out[i].Result.Composite > out[j].Result.Composite
		}
		return out[i].SalesID < out[j].SalesID
	})
	rank := 0
	for i := range out {
		if i == 0 || out[i].Result.Composite != out[i-1].Result.Composite {
			rank++
		}
		out[i].Rank = rank
	}
	return out
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	levelStyles = map[kpi.Level]lipgloss.Style{
		kpi.LevelExcellent: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		kpi.LevelVeryGood:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		kpi.LevelGood:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		kpi.LevelLessGood:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

var shortLabels = [kpi.Size]string{"V1", "V2", "V3", "CLS", "RPT", "REV", "SOC", "ACT", "HOT", "CR"}

func renderScores(w io.Writer, scored []scoredRecord, currency, locale string) error {
	headers := append([]string{"#", "ID", "Name"}, shortLabels[:]...)
	headers = append(headers, "Score", "Level")

	levelCol := len(headers) - 1
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == levelCol && row >= 0 && row < len(scored) {
				if st, ok := levelStyles[scored[row].Result.Level]; ok {
					return st.Padding(0, 1)
				}
			}
			return cellStyle
		})

	members := make([]kpi.Member, 0, len(scored))
	for _, s := range scored {
		row := []string{strconv.Itoa(s.Rank), s.SalesID, s.Name}
		for _, v := range s.Result.Vector {
			row = append(row, strconv.Itoa(v))
		}
		row = append(row, strconv.Itoa(s.Result.Composite), string(s.Result.Level))
		t.Row(row...)
		members = append(members, kpi.Member{Metrics: s.Metrics, Vector: s.Result.Vector, Stages: s.Stages})
	}

	sum := kpi.Rollup(members)
	tag := kpi.ParseLocale(locale)
	progress := "no target"
	if sum.HasTarget {
		progress = strconv.FormatFloat(sum.RevenueProgress, 'f', 1, 64) + "%"
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n",
		t.Render(),
		dimStyle.Render(fmt.Sprintf("people %d  avg KPI %d  revenue %s / %s (%s)  warm %d  hot %d  closed %d",
			sum.People, sum.AvgKPIScore,
			kpi.FormatCurrency(sum.TotalRevenue, currency, tag),
			kpi.FormatCurrency(sum.TotalTarget, currency, tag),
			progress, sum.Warm, sum.Hot, sum.Closed)),
	)
	return err
}
