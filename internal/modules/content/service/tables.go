package service

import (
	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
)

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindUUID
)

type tableSpec struct {
	name    string
	columns map[string]columnKind
	// readRole is empty for public tables.
	readRole string
	// ownRowsOnly restricts non-admin readers to the row keyed by their id.
	ownRowsOnly bool
	// writeRole is empty when rows cannot be inserted through the API.
	writeRole string
	newRows   func() interface{}
	sanitize  func(rows interface{}, clean func(string) string)
}

var tables = map[string]tableSpec{
	"profiles": {
		name: "profiles",
		columns: map[string]columnKind{
			"id": kindUUID, "name": kindText, "student_id": kindText, "email": kindText, "role": kindText,
		},
		readRole:    access.RoleAnyMember,
		ownRowsOnly: true,
		newRows:     func() interface{} { return &[]entity.Profile{} },
	},
	"events": {
		name: "events",
		columns: map[string]columnKind{
			"id": kindInt, "title": kindText, "description": kindText, "date": kindText, "image_url": kindText,
		},
		writeRole: entity.RoleAdmin,
		newRows:   func() interface{} { return &[]entity.Event{} },
		sanitize: func(rows interface{}, clean func(string) string) {
			for i := range *rows.(*[]entity.Event) {
				e := &(*rows.(*[]entity.Event))[i]
				e.Title, e.Description = clean(e.Title), clean(e.Description)
			}
		},
	},
	"announcements": {
		name: "announcements",
		columns: map[string]columnKind{
			"id": kindInt, "title": kindText, "content": kindText, "author": kindText, "date": kindText, "created_at": kindText,
		},
		writeRole: entity.RoleAdmin,
		newRows:   func() interface{} { return &[]entity.Announcement{} },
		sanitize: func(rows interface{}, clean func(string) string) {
			for i := range *rows.(*[]entity.Announcement) {
				a := &(*rows.(*[]entity.Announcement))[i]
				a.Title, a.Content, a.Author = clean(a.Title), clean(a.Content), clean(a.Author)
			}
		},
	},
	"team_members": {
		name: "team_members",
		columns: map[string]columnKind{
			"id": kindInt, "name": kindText, "position": kindText, "photo_url": kindText, "socials": kindText,
		},
		writeRole: entity.RoleAdmin,
		newRows:   func() interface{} { return &[]entity.TeamMember{} },
		sanitize: func(rows interface{}, clean func(string) string) {
			for i := range *rows.(*[]entity.TeamMember) {
				m := &(*rows.(*[]entity.TeamMember))[i]
				m.Name, m.Position = clean(m.Name), clean(m.Position)
			}
		},
	},
	"threads": {
		name: "threads",
		columns: map[string]columnKind{
			"id": kindInt, "title": kindText, "author": kindText, "replies": kindInt, "last_post": kindText,
		},
		writeRole: access.RoleAnyMember,
		newRows:   func() interface{} { return &[]entity.Thread{} },
		sanitize: func(rows interface{}, clean func(string) string) {
			for i := range *rows.(*[]entity.Thread) {
				t := &(*rows.(*[]entity.Thread))[i]
				t.Title, t.Author = clean(t.Title), clean(t.Author)
				t.Replies = 0
			}
		},
	},
}
