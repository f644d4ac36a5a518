package finance

// Function identifiers known to the executor and formatter.
const (
	FuncGetSubscriptions = "get_subscriptions"
	FuncGetProducts      = "get_products"
	FuncGetGoals         = "get_goals"
	FuncPutGoal          = "put_goal"
	FuncDeleteGoal       = "delete_goal"
	FuncManageGoals      = "manage_goals"
	FuncSummarize        = "summarize"
)

// Domains, one per store.
const (
	DomainSubscriptions = "subscriptions"
	DomainProducts      = "products"
	DomainGoals         = "goals"
)

// Actions carried in the "action" field of a domain request.
const (
	ActionGet    = "get"
	ActionPut    = "put"
	ActionDelete = "delete"
)

// FunctionDescriptor is one entry of the function catalog.
type FunctionDescriptor struct {
	FunctionID     string   `dynamodbav:"function_id" json:"function_id"`
	Title          string   `dynamodbav:"title" json:"title"`
	ToolTitle      string   `dynamodbav:"tool_title,omitempty" json:"tool_title,omitempty"`
	Description    string   `dynamodbav:"description" json:"description"`
	Category       string   `dynamodbav:"category,omitempty" json:"category,omitempty"`
	ExamplePrompts []string `dynamodbav:"example_prompts,omitempty" json:"example_prompts,omitempty"`
}

// MatchResult is the outcome of matching free text against the catalog.
// An empty FunctionID means no match.
type MatchResult struct {
	FunctionID string         `json:"function_id,omitempty"`
	Parameters map[string]any `json:"parameters"`
}

func (m MatchResult) Matched() bool { return m.FunctionID != "" }

// NoMatch is the empty match.
func NoMatch() MatchResult {
	return MatchResult{Parameters: map[string]any{}}
}

// Record is a subscription, product or goal as stored. Field sets differ per domain.
type Record = map[string]any

// ExecutionResult is the raw payload returned by a domain accessor: a list under
// the domain key (or "Items"), a status/message pair, or an error field.
type ExecutionResult = map[string]any

// Records groups whichever domain lists are available for a summary.
// A nil list is absent; an empty list is present with no entries.
type Records struct {
	Subscriptions []Record `json:"subscriptions"`
	Products      []Record `json:"products"`
	Goals         []Record `json:"goals"`
}

func (r Records) Empty() bool {
	return r.Subscriptions == nil && r.Products == nil && r.Goals == nil
}
