package domain

// KeyPrefix namespaces every key askme writes to the shared KV store.
const KeyPrefix = "askme:"

// DefaultTopK is the number of records retrieved per question.
const DefaultTopK = 4

// ContextSeparator joins retrieved records inside the prompt.
const ContextSeparator = "\n\n"
