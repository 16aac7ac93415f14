package graph

import (
	"strconv"
	"strings"
)

var venueFields = []string{
	"id",
	"name",
	"cover.fields(id,source)",
	"picture.type(large)",
	"location",
}

var eventFields = []string{
	"id",
	"name",
	"cover.fields(id,source)",
	"picture.type(large)",
	"description",
	"start_time",
	"attending_count",
	"declined_count",
	"maybe_count",
	"noreply_count",
}

// VenueEventFields builds the field expansion for a bulk venue lookup, restricting
// nested events to those starting after since (unix seconds).
func VenueEventFields(since int64) string {
	var b strings.Builder
	b.WriteString(strings.Join(venueFields, ","))
	b.WriteString(",events.fields(")
	b.WriteString(strings.Join(eventFields, ","))
	b.WriteString(").since(")
	b.WriteString(strconv.FormatInt(since, 10))
	b.WriteString(")")
	return b.String()
}
