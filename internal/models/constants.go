package models

const (
	PromptForInput = "Please ask a question."

	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 200
	DefaultTopK         = 4

	QuestionVar = "question"
	ContextVar  = "context"

	// metadata keys stored next to each vector
	MetaSource    = "source"
	MetaPage      = "page"
	MetaEndPage   = "end_page"
	MetaChunkID   = "chunk_id"
	MetaSpanStart = "start"
	MetaSpanEnd   = "end"
)

var (
	DefaultPromptTemplate = `
You are an AI Teacher who is an EXPERT in teaching students.
You have to read the documents from the students and teach them the contents provided in the
PDF in an efficient and effective manner.
You are also a friendly Chat Bot.
Question: {question}
Context: {context}
Response:
`
)
