package ai

// modelRate holds the USD price per 1K tokens for one model.
type modelRate struct {
	Input  float64
	Output float64
}

// modelRates is the static cost table used for usage logging. Prices are
// per 1K tokens; unknown models estimate at the gpt-4o-mini rate.
var modelRates = map[string]modelRate{
	"gpt-4o":       {Input: 0.0025, Output: 0.01},
	"gpt-4o-mini":  {Input: 0.00015, Output: 0.0006},
	"gpt-4.1":      {Input: 0.002, Output: 0.008},
	"gpt-4.1-mini": {Input: 0.0004, Output: 0.0016},
}

// EstimateCost returns the estimated USD cost of a call given the model and
// token counts.
func EstimateCost(model string, promptTokens, completionTokens int64) float64 {
	rate, ok := modelRates[model]
	if !ok {
		rate = modelRates["gpt-4o-mini"]
	}
	return float64(promptTokens)/1000*rate.Input + float64(completionTokens)/1000*rate.Output
}
