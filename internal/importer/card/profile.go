package card

// Kind is what a statement bills for. It picks the expense category.
type Kind string

const (
	KindFuel Kind = "fuel"
	KindToll Kind = "toll"
)

type amountMode int

const (
	// amountSingle is one column per charge; its sign is ignored.
	amountSingle amountMode = iota
	// amountSplit has separate debit and credit columns. Credits are refunds
	// and are not imported.
	amountSplit
)

// Profile describes the column layout of one issuer's export.
type Profile struct {
	Name       string
	Kind       Kind
	DateCol    string
	DescCols   []string
	PlateCol   string
	AmountMode amountMode
	AmountCol  string
	DebitCol   string
	CreditCol  string
}

func (p Profile) requiredCols() []string {
	cols := append([]string{p.DateCol, p.PlateCol}, p.DescCols...)

	switch p.AmountMode {
	case amountSingle:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// Most specific first.
var profiles = []Profile{
	{
		Name:       "via-verde",
		Kind:       KindToll,
		DateCol:    "Data Saída",
		DescCols:   []string{"Entrada", "Saída"},
		PlateCol:   "Matrícula",
		AmountMode: amountSingle,
		AmountCol:  "Valor",
	},
	{
		Name:       "frota-conta",
		Kind:       KindFuel,
		DateCol:    "Data",
		DescCols:   []string{"Descrição"},
		PlateCol:   "Matrícula",
		AmountMode: amountSplit,
		DebitCol:   "Débito",
		CreditCol:  "Crédito",
	},
	{
		Name:       "frota-abastecimentos",
		Kind:       KindFuel,
		DateCol:    "Data",
		DescCols:   []string{"Posto"},
		PlateCol:   "Matrícula",
		AmountMode: amountSingle,
		AmountCol:  "Valor",
	},
}
