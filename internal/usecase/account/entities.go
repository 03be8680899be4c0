package account

// profileTemplate seeds the financial fields of an account the customer did
// not fill in themselves.
type profileTemplate struct {
	MonthlyIncome float64
	ExistingEMI   float64
	CreditScore   int
	Segment       string
}

var templates = []profileTemplate{
	{MonthlyIncome: 75000, ExistingEMI: 8000, CreditScore: 750, Segment: "Salaried"},
	{MonthlyIncome: 50000, ExistingEMI: 12000, CreditScore: 680, Segment: "Salaried"},
	{MonthlyIncome: 35000, ExistingEMI: 3000, CreditScore: 650, Segment: "New to Credit"},
}
