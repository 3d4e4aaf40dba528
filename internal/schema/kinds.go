package schema

var Attachments = &Kind{
	Name:       "attachments",
	ItemsField: "attachments",
	Table:      "message_attachments",
	NaturalKey: "attachmentId",
	Fields: []Field{
		{Name: "attachmentId", Column: "attachment_id", Type: Text, Required: true},
		{Name: "filename", Column: "filename", Type: EncryptedOrEmpty},
		{Name: "mimeType", Column: "mime_type", Type: Text},
		{Name: "totalBytes", Column: "total_bytes", Type: Int},
		{Name: "data", Column: "data", Type: Encrypted, Required: true},
	},
}

var Messages = &Kind{
	Name:           "messages",
	ItemsField:     "messages",
	Scope:          "messages",
	Table:          "messages",
	NaturalKey:     "guid",
	TimestampField: "date",
	Fields: []Field{
		{Name: "guid", Column: "guid", Type: Text, Required: true},
		{Name: "text", Column: "text", Type: EncryptedOrEmpty},
		{Name: "subject", Column: "subject", Type: EncryptedOrEmpty},
		{Name: "handle", Column: "handle", Type: EncryptedOrEmpty},
		{Name: "handleIndex", Column: "handle_index", Type: BlindIndex, Filter: true},
		{Name: "chatId", Column: "chat_id", Type: Text, Filter: true},
		{Name: "service", Column: "service", Type: Text},
		{Name: "isFromMe", Column: "is_from_me", Type: Bool},
		{Name: "isRead", Column: "is_read", Type: Bool},
		{Name: "isDelivered", Column: "is_delivered", Type: Bool},
		{Name: "hasAttachments", Column: "has_attachments", Type: Bool},
		{Name: "date", Column: "date", Type: Time, Required: true},
		{Name: "dateRead", Column: "date_read", Type: Time},
	},
	MutableFields:   []string{"isRead", "isDelivered", "dateRead"},
	MutableWindow:   DefaultMutableWindow,
	RetentionAnchor: "created_at",
	Child:           Attachments,
	ChildFlag:       "hasAttachments",
	ParentColumn:    "message_guid",
}

var Contacts = &Kind{
	Name:           "contacts",
	ItemsField:     "contacts",
	Scope:          "contacts",
	Table:          "contacts",
	NaturalKey:     "contactId",
	TimestampField: "modifiedAt",
	Fields: []Field{
		{Name: "contactId", Column: "contact_id", Type: Text, Required: true},
		{Name: "name", Column: "name", Type: Encrypted, Required: true},
		{Name: "nameIndex", Column: "name_index", Type: BlindIndex, Filter: true},
		{Name: "firstNameIndex", Column: "first_name_index", Type: BlindIndex, Filter: true},
		{Name: "lastNameIndex", Column: "last_name_index", Type: BlindIndex, Filter: true},
		{Name: "phone", Column: "phone", Type: EncryptedOrEmpty},
		{Name: "phoneIndex", Column: "phone_index", Type: BlindIndex, Filter: true},
		{Name: "email", Column: "email", Type: EncryptedOrEmpty},
		{Name: "emailIndex", Column: "email_index", Type: BlindIndex, Filter: true},
		{Name: "organization", Column: "organization", Type: EncryptedOrEmpty},
		{Name: "modifiedAt", Column: "modified_at", Type: Time, Required: true},
	},
	MutableFields: []string{
		"name", "nameIndex", "firstNameIndex", "lastNameIndex", "phone", "phoneIndex",
		"email", "emailIndex", "organization", "modifiedAt",
	},
	MutableWindow:   DefaultMutableWindow,
	RetentionAnchor: "created_at",
}

var Notes = &Kind{
	Name:           "notes",
	ItemsField:     "notes",
	Scope:          "notes",
	Table:          "notes",
	NaturalKey:     "noteId",
	TimestampField: "modifiedAt",
	Fields: []Field{
		{Name: "noteId", Column: "note_id", Type: Text, Required: true},
		{Name: "title", Column: "title", Type: EncryptedOrEmpty},
		{Name: "titleIndex", Column: "title_index", Type: BlindIndex, Filter: true},
		{Name: "body", Column: "body", Type: Encrypted, Required: true},
		{Name: "folder", Column: "folder", Type: EncryptedOrEmpty},
		{Name: "isPinned", Column: "is_pinned", Type: Bool},
		{Name: "modifiedAt", Column: "modified_at", Type: Time, Required: true},
	},
	MutableFields:   []string{"title", "body", "folder", "titleIndex", "isPinned", "modifiedAt"},
	MutableWindow:   DefaultMutableWindow,
	RetentionAnchor: "created_at",
}

var Stickies = &Kind{
	Name:           "stickies",
	ItemsField:     "stickies",
	Scope:          "stickies",
	Table:          "stickies",
	NaturalKey:     "stickyId",
	TimestampField: "modifiedAt",
	Fields: []Field{
		{Name: "stickyId", Column: "sticky_id", Type: Text, Required: true},
		{Name: "content", Column: "content", Type: Encrypted, Required: true},
		{Name: "color", Column: "color", Type: Text},
		{Name: "modifiedAt", Column: "modified_at", Type: Time, Required: true},
	},
	MutableFields:   []string{"content", "color", "modifiedAt"},
	MutableWindow:   DefaultMutableWindow,
	RetentionAnchor: "created_at",
}

var Reminders = &Kind{
	Name:           "reminders",
	ItemsField:     "reminders",
	Scope:          "reminders",
	Table:          "reminders",
	NaturalKey:     "reminderId",
	TimestampField: "modifiedAt",
	Fields: []Field{
		{Name: "reminderId", Column: "reminder_id", Type: Text, Required: true},
		{Name: "title", Column: "title", Type: Encrypted, Required: true},
		{Name: "titleIndex", Column: "title_index", Type: BlindIndex, Filter: true},
		{Name: "notes", Column: "notes", Type: EncryptedOrEmpty},
		{Name: "list", Column: "list", Type: Text, Filter: true},
		{Name: "dueDate", Column: "due_date", Type: Time},
		{Name: "isCompleted", Column: "is_completed", Type: Bool},
		{Name: "completedAt", Column: "completed_at", Type: Time},
		{Name: "priority", Column: "priority", Type: Int},
		{Name: "modifiedAt", Column: "modified_at", Type: Time, Required: true},
	},
	MutableFields: []string{
		"title", "notes", "titleIndex", "list", "dueDate", "isCompleted", "completedAt", "priority", "modifiedAt",
	},
	MutableWindow:   DefaultMutableWindow,
	RetentionAnchor: "created_at",
}

var Locations = &Kind{
	Name:           "locations",
	ItemsField:     "locations",
	Scope:          "locations",
	Table:          "locations",
	NaturalKey:     "locationId",
	TimestampField: "capturedAt",
	Fields: []Field{
		{Name: "locationId", Column: "location_id", Type: Text, Required: true},
		{Name: "latitude", Column: "latitude", Type: Encrypted, Required: true},
		{Name: "longitude", Column: "longitude", Type: Encrypted, Required: true},
		{Name: "accuracy", Column: "accuracy", Type: Float},
		{Name: "placeName", Column: "place_name", Type: EncryptedOrEmpty},
		{Name: "capturedAt", Column: "captured_at", Type: Time, Required: true},
	},
	RetentionAnchor: "captured_at",
}

var all = []*Kind{Messages, Contacts, Notes, Stickies, Reminders, Locations}

// All returns the synced kinds in a stable order.
func All() []*Kind {
	return all
}

// Lookup finds a synced kind by its route name.
func Lookup(name string) (*Kind, bool) {
	for _, k := range all {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}
