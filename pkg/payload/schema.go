package payload

import (
	"fmt"
	"strings"

	z "github.com/Oudwins/zog"
)

// MaxNameLength matches the size of the name columns in the store.
const MaxNameLength = 100

var nameTooLong = fmt.Sprintf("must be at most %d bytes", MaxNameLength)

var readingSchema = z.Struct(z.Shape{
	"deviceName": z.String().
		Min(1, z.Message("must not be empty")).
		Max(MaxNameLength, z.Message(nameTooLong)).
		Required(z.Message("must not be empty")),
})

var locationSchema = z.Struct(z.Shape{
	"name": z.String().
		Min(1, z.Message("must not be empty")).
		Max(MaxNameLength, z.Message(nameTooLong)).
		Required(z.Message("must not be empty")),
})

// validateNames applies the naming rules once the wire shape has decoded. A
// field that already failed to decode is not reported twice.
func validateNames(reading *Reading, verr *ValidationError) {
	if reading.Version != 0 && !hasField(verr, deviceNameField(reading.Version)) {
		if issues := readingSchema.Validate(reading); issues != nil {
			addIssues(verr, issues, map[string]string{"deviceName": deviceNameField(reading.Version)})
		}
	}

	for i := range reading.Locations {
		field := fmt.Sprintf("%s[%d].location_name", FieldLocations, i)
		if hasField(verr, field) || hasField(verr, fmt.Sprintf("%s[%d]", FieldLocations, i)) {
			continue
		}
		if issues := locationSchema.Validate(&reading.Locations[i]); issues != nil {
			addIssues(verr, issues, map[string]string{"name": field})
		}
	}
}

func deviceNameField(v Version) string {
	if v == VersionDevice {
		return FieldDevice + ".name"
	}
	return FieldRaspberry + ".device_name"
}

func addIssues(verr *ValidationError, issues z.ZogIssueMap, fields map[string]string) {
	for key, list := range issues {
		if key == "$first" || len(list) == 0 {
			continue
		}
		verr.add(fieldFor(key, fields), list[0].Message)
	}
}

func fieldFor(key string, fields map[string]string) string {
	for shapeKey, field := range fields {
		if strings.EqualFold(shapeKey, key) {
			return field
		}
	}
	return key
}

func hasField(verr *ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
