package reporting

import (
	"strconv"
	"strings"

	"inventory-sweep-lab/internal/domain"
)

// ResultCSVHeader is the column layout of results.csv and oos_result.csv.
const ResultCSVHeader = "k,alpha,hth,hsz,mean_inv_vol,mean_controlled_pnl,t_stat,n_seeds,std_controlled_pnl"

// ParetoCSVHeader is the column layout of pareto_oos.csv.
const ParetoCSVHeader = "k,alpha,hth,hsz,risk,reward"

// RenderResultCSV renders a result table as CSV, one line per row in table
// order. An undefined t-statistic is written as NaN.
func RenderResultCSV(table *domain.ResultTable) string {
	var sb strings.Builder

	sb.WriteString(ResultCSVHeader)
	sb.WriteByte('\n')

	if table == nil {
		return sb.String()
	}
	for _, r := range table.Rows {
		writeParams(&sb, r.Params)
		sb.WriteString(formatFloat(r.MeanInvVol))
		sb.WriteByte(',')
		sb.WriteString(formatFloat(r.MeanControlledPnL))
		sb.WriteByte(',')
		sb.WriteString(formatTStat(r))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(r.NSeeds))
		sb.WriteByte(',')
		sb.WriteString(formatFloat(r.StdControlledPnL))
		sb.WriteByte('\n')
	}

	return sb.String()
}

// RenderParetoCSV renders front points as CSV.
func RenderParetoCSV(front []domain.ParetoPoint) string {
	var sb strings.Builder

	sb.WriteString(ParetoCSVHeader)
	sb.WriteByte('\n')

	for _, p := range front {
		writeParams(&sb, p.Params)
		sb.WriteString(formatFloat(p.Risk))
		sb.WriteByte(',')
		sb.WriteString(formatFloat(p.Reward))
		sb.WriteByte('\n')
	}

	return sb.String()
}

func writeParams(sb *strings.Builder, p domain.ParameterSet) {
	for _, v := range []float64{p.K, p.Alpha, p.HTh, p.HSz} {
		sb.WriteString(formatFloat(v))
		sb.WriteByte(',')
	}
}

// formatFloat writes the shortest representation that parses back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatTStat(r domain.SummaryRow) string {
	if !r.TStatDefined {
		return "NaN"
	}
	return formatFloat(r.TStat)
}
