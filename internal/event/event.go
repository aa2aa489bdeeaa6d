package event

// Category identifies the kind of state change an event describes.
type Category string

const (
	CategoryTaskAssigned   Category = "task_assigned"
	CategoryCommentPosted  Category = "comment_posted"
	CategoryProjectUpdated Category = "project_updated"
	CategoryMention        Category = "mention"
	CategoryMemberAdded    Category = "member_added"
	CategoryMemberRemoved  Category = "member_removed"
	CategorySystem         Category = "system"
)

// FrequencyGated reports whether the recipient's frequency preference can
// suppress this category. System announcements are operator-initiated and
// bypass the "never" kill switch.
func (c Category) FrequencyGated() bool {
	return c != CategorySystem
}

// Event is the producer contract: mutation handlers construct one of these
// after their own change has been persisted and hand it to the dispatcher.
type Event struct {
	Category Category
	Title    string
	Body     string
	SenderID *uint64

	// Weak references used for routing and mute matching.
	TaskID    *uint64
	ProjectID *uint64

	// Recipients are explicit targets. Mentions are additional targets
	// named in the event's content. Broadcast fans out to every
	// admin-role identity instead.
	Recipients []uint64
	Mentions   []uint64
	Broadcast  bool
}
