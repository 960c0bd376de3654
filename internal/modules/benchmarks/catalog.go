package benchmarks

// Benchmark names an external index series.
type Benchmark struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StandardBenchmarks are the well-known series offered for comparison. Values
// still have to be recorded before they can be used.
var StandardBenchmarks = []Benchmark{
	{ID: "^GSPC", Name: "S&P 500"},
	{ID: "^IXIC", Name: "NASDAQ Composite"},
	{ID: "^DJI", Name: "Dow Jones"},
	{ID: "^RUT", Name: "Russell 2000"},
	{ID: "^FTSE", Name: "FTSE 100"},
	{ID: "^GDAXI", Name: "DAX"},
	{ID: "^N225", Name: "Nikkei 225"},
	{ID: "BTC-USD", Name: "Bitcoin"},
	{ID: "GC=F", Name: "Gold"},
	{ID: "^TNX", Name: "10-Yr Treasury Yield"},
}

// NameOf returns the display name of a standard benchmark, or the id itself.
func NameOf(id string) string {
	for _, b := range StandardBenchmarks {
		if b.ID == id {
			return b.Name
		}
	}
	return id
}
