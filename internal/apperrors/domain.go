package apperrors

var (
	ErrSelfConversation   = SelfTarget("cannot converse with yourself")
	ErrConversationAbsent = NotFound("conversation not found")
	ErrMessageAbsent      = NotFound("message not found")
	ErrNotParticipant     = NotAParticipant("not a conversation participant")
	ErrNotSender          = NotAuthorized("only the sender may delete this message")
	ErrNotDeletable       = InvalidArg("only image and video messages can be deleted")
	ErrOwnSnap            = NotAuthorized("cannot open your own snap")
	ErrNotSnap            = InvalidArg("message is not a snap")
	ErrSnapExpired        = AlreadyExpired("snap has expired")
	ErrSnapConsumed       = AlreadyExpired("snap was already viewed")
	ErrInvalidFormat      = InvalidArg("unknown message format")
	ErrEmptyContent       = InvalidArg("content is required")
	ErrInvalidCursor      = InvalidArg("invalid cursor")
)
