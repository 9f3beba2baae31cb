package analysis

import (
	"fmt"
	"strings"
)

// Markdown renders the dashboard as a standalone document.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[CHURN DASHBOARD]\n")
	if s.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", s.Name)
	}
	fmt.Fprintf(&b, "Rows: %s\n\n", FormatCount(s.KPIs.Total))

	b.WriteString("[KPIS]\n")
	fmt.Fprintf(&b, "- Total Customers: %s\n", FormatCount(s.KPIs.Total))
	fmt.Fprintf(&b, "- Churn Rate: %s (%s churned)\n", FormatPercent(s.KPIs.ChurnRate), FormatCount(s.KPIs.Churned))
	fmt.Fprintf(&b, "- Avg Satisfaction: %s\n", FormatScore(s.KPIs.AvgSatisfaction))
	fmt.Fprintf(&b, "- Avg CLTV: %s\n", FormatMoney(s.KPIs.AvgCLTV))

	if len(s.Findings) > 0 {
		b.WriteString("\n[KEY FINDINGS]\n")
		for i, f := range s.Findings {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f.Title, f.Detail)
		}
	}

	writeGroups(&b, "CHURN BY SATISFACTION SCORE", "SatisfactionScore", s.BySatisfaction)
	writeGroups(&b, "CHURN BY CONTRACT", "Contract", s.ByContract)

	if len(s.CLTVHistogram.Bins) > 0 {
		b.WriteString("\n[CLTV DISTRIBUTION]\n")
		rows := make([][]string, len(s.CLTVHistogram.Bins))
		for i, bin := range s.CLTVHistogram.Bins {
			rows[i] = []string{
				fmt.Sprintf("%.2f-%.2f", bin.Lo, bin.Hi),
				fmt.Sprint(bin.No),
				fmt.Sprint(bin.Yes),
			}
		}
		writeTable(&b, []string{"CLTV", "No", "Yes"}, rows)
	}

	if len(s.Scatter) > 0 {
		b.WriteString("\n[DATA USAGE VS MONTHLY CHARGES]\n")
		fmt.Fprintf(&b, "- points: %d (size = SupportTicketsLastMonth, hover = customerID)\n", len(s.Scatter))
		fmt.Fprintf(&b, "- DataUsageMonthlyGB ~ MonthlyCharges: r=%.3f\n", s.UsageChargeR)
	}

	if len(s.Columns) > 0 {
		b.WriteString("\n[SCHEMA]\n")
		for _, c := range s.Columns {
			fmt.Fprintf(&b, "- %s: %s", safeName(c.Name), c.Kind)
			if c.Kind == "numeric" {
				fmt.Fprintf(&b, "; mean %.4g (min %.4g, max %.4g)", c.Mean, c.Min, c.Max)
			}
			b.WriteString("\n")
		}
	}

	if len(s.Head) > 0 {
		fmt.Fprintf(&b, "\n[RAW DATA PREVIEW: FIRST %d ROWS]\n", len(s.Head))
		writeTable(&b, s.Header, s.Head)
	}
	return b.String()
}

func writeGroups(b *strings.Builder, title, keyName string, groups []GroupCount) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "\n[%s]\n", title)
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{g.Key, g.Churn, fmt.Sprint(g.Count)}
	}
	writeTable(b, []string{keyName, "Churn", "count"}, rows)
}
