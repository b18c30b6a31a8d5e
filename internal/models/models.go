package models

// All lists the models migrated at startup.
var All = []interface{}{
	&Job{},
}
