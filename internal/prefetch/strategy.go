// internal/prefetch/strategy.go
package prefetch

// Strategy tags which heuristic proposed a prefetch candidate. The value
// doubles as the strategy component of scheduling priority: lower runs
// sooner.
type Strategy int

const (
	StrategyImmediate     Strategy = 1
	StrategyHoverFast     Strategy = 2
	StrategyScrollPredict Strategy = 3
	StrategyViewportNear  Strategy = 4
	StrategyIdlePreload   Strategy = 5
)

// String returns the strategy label for logs and metrics.
func (s Strategy) String() string {
	switch s {
	case StrategyImmediate:
		return "immediate"
	case StrategyHoverFast:
		return "hover_fast"
	case StrategyScrollPredict:
		return "scroll_predict"
	case StrategyViewportNear:
		return "viewport_near"
	case StrategyIdlePreload:
		return "idle_preload"
	default:
		return "unknown"
	}
}

// ContentClass is the content-type component of scheduling priority.
type ContentClass int

const (
	ContentBusinessPages ContentClass = 1
	ContentSearchResults ContentClass = 2
	ContentCategoryPages ContentClass = 3
	ContentImages        ContentClass = 4
	ContentStaticAssets  ContentClass = 5
)

// String returns the content class label for logs and metrics.
func (c ContentClass) String() string {
	switch c {
	case ContentBusinessPages:
		return "business_pages"
	case ContentSearchResults:
		return "search_results"
	case ContentCategoryPages:
		return "category_pages"
	case ContentImages:
		return "images"
	case ContentStaticAssets:
		return "static_assets"
	default:
		return "unknown"
	}
}
