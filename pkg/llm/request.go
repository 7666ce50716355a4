package llm

// DataSourceAzureSearch is the data source type for Azure AI Search retrieval.
const DataSourceAzureSearch = "azure_search"

// AuthSystemAssignedManagedIdentity authenticates the completion service against
// the search index with its own managed identity.
const AuthSystemAssignedManagedIdentity = "system_assigned_managed_identity"

// ChatRequest represents a chat completion request (Azure OpenAI compatible).
type ChatRequest struct {
	Model    string    `json:"model,omitempty"` // Model or deployment name
	Messages []Message `json:"messages"`        // Conversation history

	// Retrieval augmentation, omitted entirely when not configured
	DataSources []DataSource `json:"data_sources,omitempty"`
}

// DataSource attaches a server-side retrieval source to a completion request.
type DataSource struct {
	Type       string               `json:"type"` // e.g. "azure_search"
	Parameters DataSourceParameters `json:"parameters"`
}

// DataSourceParameters configures the search index queried by the service.
type DataSourceParameters struct {
	Endpoint       string         `json:"endpoint"`
	IndexName      string         `json:"index_name"`
	Authentication Authentication `json:"authentication"`
}

// Authentication selects how the service authenticates to the data source.
type Authentication struct {
	Type string `json:"type"`
}
