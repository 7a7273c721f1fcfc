package interact

// Phrases are the texts flows send to users. Fields holding a verb such as
// %s or %d are passed through fmt.Sprintf.
type Phrases struct {
	InputPrompt     string `json:"input_prompt,omitempty"`
	InputHint       string `json:"input_hint,omitempty"`
	InputCanceled   string `json:"input_canceled,omitempty"`
	InputTimedOut   string `json:"input_timed_out,omitempty"`
	ConfirmPrompt   string `json:"confirm_prompt,omitempty"`
	ConfirmHint     string `json:"confirm_hint,omitempty"` // %s: confirm token
	ConfirmDeclined string `json:"confirm_declined,omitempty"`
	ChooseHeader    string `json:"choose_header,omitempty"`
	ChooseHint      string `json:"choose_hint,omitempty"` // %d: number of entries
	NoResults       string `json:"no_results,omitempty"`  // %s: query
	PageFooter      string `json:"page_footer,omitempty"` // %d, %d: page, pages
	PagerHint       string `json:"pager_hint,omitempty"`
	PagerEmpty      string `json:"pager_empty,omitempty"`
}

func DefaultPhrases() Phrases {
	return Phrases{
		InputPrompt:     "Type your response.",
		InputHint:       "Reply `cancel` to cancel.",
		InputCanceled:   "Input canceled.",
		InputTimedOut:   "No response received, the prompt was closed.",
		ConfirmPrompt:   "Are you sure?",
		ConfirmHint:     "Reply `%s` to confirm.",
		ConfirmDeclined: "Canceled.",
		ChooseHeader:    "Pick an entry:",
		ChooseHint:      "Reply with a number from 1 to %d, or `cancel`.",
		NoResults:       "Nothing matches %q.",
		PageFooter:      "Page %d of %d",
		PagerHint:       "Reply `<` or `>` to turn pages, a page number to jump, or `stop` to close.",
		PagerEmpty:      "Nothing to show.",
	}
}

func (p Phrases) merge(override Phrases) Phrases {
	pick := func(current *string, next string) {
		if next != "" {
			*current = next
		}
	}

	pick(&p.InputPrompt, override.InputPrompt)
	pick(&p.InputHint, override.InputHint)
	pick(&p.InputCanceled, override.InputCanceled)
	pick(&p.InputTimedOut, override.InputTimedOut)
	pick(&p.ConfirmPrompt, override.ConfirmPrompt)
	pick(&p.ConfirmHint, override.ConfirmHint)
	pick(&p.ConfirmDeclined, override.ConfirmDeclined)
	pick(&p.ChooseHeader, override.ChooseHeader)
	pick(&p.ChooseHint, override.ChooseHint)
	pick(&p.NoResults, override.NoResults)
	pick(&p.PageFooter, override.PageFooter)
	pick(&p.PagerHint, override.PagerHint)
	pick(&p.PagerEmpty, override.PagerEmpty)
	return p
}
