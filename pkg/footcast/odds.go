package footcast

import "math"

// Provider identifies which bookmaker an implied probability came from
type Provider string

const (
	ProviderPinnacle Provider = "pinnacle"
	ProviderBet365   Provider = "bet365"
	ProviderNone     Provider = "none"
)

// Quote is a 1X2 set of decimal prices. Any non positive, NaN or infinite price counts as absent.
type Quote struct {
	Home float64
	Draw float64
	Away float64
}

// Valid reports whether all three prices are usable
func (q Quote) Valid() bool {
	return validPrice(q.Home) && validPrice(q.Draw) && validPrice(q.Away)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// Implied holds de-vigged outcome probabilities and the bookmaker margin they were taken from.
// When Provider is ProviderNone every numeric field is NaN.
type Implied struct {
	PH        float64
	PD        float64
	PA        float64
	Overround float64
	Provider  Provider
}

// Missing reports whether no provider had a complete quote
func (i Implied) Missing() bool {
	return i.Provider == ProviderNone
}

// Devig normalises a valid quote: p = (1/price) / sum(1/price), overround = sum(1/price)
func Devig(q Quote) (pH, pD, pA, overround float64) {
	ih, id, ia := 1/q.Home, 1/q.Draw, 1/q.Away
	overround = ih + id + ia
	return ih / overround, id / overround, ia / overround, overround
}

// NormalizeOdds picks the primary quote when all three prices are valid, else the fallback
// quote in full. Prices from the two quotes are never mixed.
func NormalizeOdds(primary, fallback Quote) Implied {
	for _, c := range []struct {
		q Quote
		p Provider
	}{{primary, ProviderPinnacle}, {fallback, ProviderBet365}} {
		if !c.q.Valid() {
			continue
		}
		pH, pD, pA, o := Devig(c.q)
		return Implied{PH: pH, PD: pD, PA: pA, Overround: o, Provider: c.p}
	}
	nan := math.NaN()
	return Implied{PH: nan, PD: nan, PA: nan, Overround: nan, Provider: ProviderNone}
}

// ImpliedFor normalises a match's Pinnacle/Bet365 prices
func ImpliedFor(m *Match) Implied {
	return NormalizeOdds(m.PrimaryQuote(), m.FallbackQuote())
}
