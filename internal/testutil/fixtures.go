// Package testutil holds fixtures shared by package tests.
package testutil

import "github.com/roach88/strata/internal/schema"

// TaskSchema is the schema most tests run against:
//
//	Task    primary key _id (objectId), a description, a completion flag,
//	        an owner link and a list of subtasks
//	Person  no primary key, an embedded Address, a list of tasks
//	Address embedded
//	Note    keyed by int, holding a mixed payload
//	Event   asymmetric
func TaskSchema() []schema.RawObjectSchema {
	return []schema.RawObjectSchema{
		{
			Name:       "Task",
			PrimaryKey: "_id",
			Properties: schema.RawProperties{
				{Name: "_id", Type: "objectId"},
				{Name: "description", Type: "string"},
				{Name: "isComplete", Type: "bool", Indexed: true},
				{Name: "priority", Type: "int?"},
				{Name: "owner", Type: "Person"},
				{Name: "subtasks", Type: "Task[]"},
				{Name: "tags", Type: "string<>"},
			},
		},
		{
			Name: "Person",
			Properties: schema.RawProperties{
				{Name: "name", Type: "string"},
				{Name: "born", Type: "date?"},
				{Name: "address", Type: "Address"},
				{Name: "tasks", Type: "Task[]"},
			},
		},
		{
			Name:     "Address",
			Embedded: true,
			Properties: schema.RawProperties{
				{Name: "street", Type: "string"},
				{Name: "city", Type: "string"},
			},
		},
		{
			Name:       "Note",
			PrimaryKey: "id",
			Properties: schema.RawProperties{
				{Name: "id", Type: "int"},
				{Name: "body", Type: "mixed"},
				{Name: "score", Type: "double"},
			},
		},
		{
			Name:       "Event",
			Asymmetric: true,
			Properties: schema.RawProperties{
				{Name: "kind", Type: "string"},
			},
		},
	}
}

// TaskClasses is the class names of TaskSchema in declaration order.
var TaskClasses = []string{"Task", "Person", "Address", "Note", "Event"}
