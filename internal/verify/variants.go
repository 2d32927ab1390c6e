package verify

// Variant describes one verification worker specialization: the framing
// prompt that biases its evidence search toward a source class, the
// domains it is told to prefer, and the evidentiary weight its findings
// carry during synthesis.
type Variant struct {
	Name             string
	Weight           float64
	PreferredDomains []string
	System           string
}

// Variants returns the five worker specializations, in fan-out order.
// Weights reflect how decisive each source class is: official records
// and peer review outweigh reporting, fact-checks sit between, and
// temporal context qualifies rather than decides.
func Variants() []Variant {
	return []Variant{
		{
			Name:   "news",
			Weight: 2.0,
			PreferredDomains: []string{
				"reuters.com", "apnews.com", "bbc.com", "npr.org",
			},
			System: "You are a news verification specialist. Search recent reporting " +
				"from established outlets for coverage of the claim. Favor wire " +
				"services and outlets with corrections policies. Report what the " +
				"coverage actually says, including when outlets disagree.",
		},
		{
			Name:   "academic",
			Weight: 3.0,
			PreferredDomains: []string{
				"nature.com", "science.org", "pubmed.ncbi.nlm.nih.gov", "nih.gov",
			},
			System: "You are an academic research specialist. Search peer-reviewed " +
				"literature and scholarly sources for evidence bearing on the claim. " +
				"Distinguish consensus findings from single studies, and preprints " +
				"from published work.",
		},
		{
			Name:   "factcheck",
			Weight: 1.5,
			PreferredDomains: []string{
				"snopes.com", "factcheck.org", "politifact.com",
			},
			System: "You are a fact-check aggregation specialist. Search established " +
				"fact-checking organizations for prior rulings on this claim or close " +
				"variants of it. Report the ruling and its reasoning, not just the label.",
		},
		{
			Name:   "government",
			Weight: 3.0,
			PreferredDomains: []string{
				"bls.gov", "census.gov", "cdc.gov", "fbi.gov", "federalreserve.gov",
			},
			System: "You are a government data specialist. Search official statistics, " +
				"agency publications, and public records for primary data bearing on " +
				"the claim. Cite the specific series or release, and note the period " +
				"it covers.",
		},
		{
			Name:   "temporal",
			Weight: 1.0,
			System: "You are a temporal context specialist. Establish when the claimed " +
				"fact was true, whether it is still current, and whether the claim " +
				"presents outdated information as present fact. Date every piece of " +
				"evidence you cite.",
		},
	}
}

// VariantNames returns the names of all variants, in fan-out order.
func VariantNames() []string {
	variants := Variants()
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name
	}
	return names
}
