package dataset

// Column names of the telco churn dataset that the tool reads or writes.
const (
	ColCustomerID      = "customerID"
	ColInternetService = "InternetService"
	ColContract        = "Contract"
	ColMonthlyCharges  = "MonthlyCharges"
	ColTotalCharges    = "TotalCharges"
	ColChurn           = "Churn"

	ColSatisfaction = "SatisfactionScore"
	ColDataUsage    = "DataUsageMonthlyGB"
	ColCLTV         = "CLTV"
	ColTickets      = "SupportTicketsLastMonth"
)

// DerivedColumns lists the enrichment columns in output order.
var DerivedColumns = []string{ColSatisfaction, ColDataUsage, ColCLTV, ColTickets}

// ChurnYes is the churn flag value for a customer who left.
const ChurnYes = "Yes"
