package ports

import "github.com/bnema/shopchat/internal/domain"

// Bubble is a message already placed in the transcript whose content can
// still change while a reply streams in.
type Bubble interface {
	Replace(markup string)
}

// Presenter is the sink for everything a turn shows to the user. Text
// passed to AppendMessage is markup; callers escape user input first.
type Presenter interface {
	AppendMessage(markup string, role domain.Role) Bubble
	AppendNotice(text string)
	ShowTyping()
	HideTyping()
	AppendCard(item domain.StructuralItem)
}
