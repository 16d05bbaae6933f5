package tools

// Tool names
const (
	ToolSearch         = "search"
	ToolLocalKnowledge = "get_info_from_local_db"
	ToolBaziCesuan     = "bazi_cesuan"
	ToolYaoyigua       = "yaoyigua"
	ToolJiemeng        = "jiemeng"
)

// Dependencies are the external collaborators the built-in tools need
type Dependencies struct {
	SerpAPIKey string
	Knowledge  KnowledgeSearcher // nil disables the local knowledge base
	Yuanfenju  *YuanfenjuClient
}

// NewDefaultRegistry builds the persona's tool set in a fixed order
func NewDefaultRegistry(deps Dependencies) (*Registry, error) {
	return NewRegistry(
		NewSearchTool(deps.SerpAPIKey),
		NewKnowledgeTool(deps.Knowledge),
		NewBaziTool(deps.Yuanfenju),
		NewYaoyiguaTool(deps.Yuanfenju),
		NewJiemengTool(deps.Yuanfenju),
	)
}
