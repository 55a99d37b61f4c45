package stream

// StatusToken is a progress token emitted by the answer engine while it works
// on a question. The vocabulary is open: tokens that are not in the display
// table are still relayed and shown verbatim.
type StatusToken string

const (
	PreparingQuestion   StatusToken = "preparing_question"
	RetrievingChunks    StatusToken = "retrieving_chunks"
	FilteringChunks     StatusToken = "filtering_chunks"
	GettingParentChunks StatusToken = "getting_parent_chunks"
	ExtractingContent   StatusToken = "extracting_content"
	SummarizingContent  StatusToken = "summarizing_content"
	GeneratingResponse  StatusToken = "generating_response"
	SavingToDB          StatusToken = "saving_to_db"
	PreparingContext    StatusToken = "preparing_context"
	CleaningUp          StatusToken = "cleaning_up"
)

// StatusDisplay is the human readable form of a status token.
type StatusDisplay struct {
	Message string `json:"message"`
	Icon    string `json:"icon,omitempty"`
}

var displayTable = map[StatusToken]StatusDisplay{
	PreparingQuestion:   {Message: "Preparing your question", Icon: "brain"},
	RetrievingChunks:    {Message: "Searching through your sources", Icon: "search"},
	FilteringChunks:     {Message: "Filtering relevant information", Icon: "filter"},
	GettingParentChunks: {Message: "Gathering context", Icon: "file-text"},
	ExtractingContent:   {Message: "Extracting key information", Icon: "sparkles"},
	SummarizingContent:  {Message: "Summarizing findings", Icon: "list"},
	GeneratingResponse:  {Message: "Generating response", Icon: "message-square"},
	SavingToDB:          {Message: "Saving response", Icon: "database"},
	PreparingContext:    {Message: "Preparing context", Icon: "layers"},
	CleaningUp:          {Message: "Finalizing", Icon: "check-circle"},
}

// Display returns the display entry for a token. Unknown tokens fall back to
// the raw token text with no icon.
func (t StatusToken) Display() StatusDisplay {
	if d, ok := displayTable[t]; ok {
		return d
	}
	return StatusDisplay{Message: string(t)}
}

// Known reports whether the token has a display entry.
func (t StatusToken) Known() bool {
	_, ok := displayTable[t]
	return ok
}

func (t StatusToken) String() string {
	return string(t)
}
