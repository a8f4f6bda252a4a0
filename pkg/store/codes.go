// codes.go maps typed enums to the integer codes stored in SQLite.
//
// Application code deals only in model.DisplayStatus and model.Origin; the
// raw integers exist solely in this file and in the schema. Unknown codes
// read back from disk are an error, not a silent default, so a downgrade
// against a newer database fails loudly instead of misclassifying alerts.
package store

import (
	"fmt"

	"remindd/pkg/model"
)

func displayCode(d model.DisplayStatus) (int, error) {
	switch d {
	case model.Hidden:
		return 0, nil
	case model.DisplayedNormal:
		return 1, nil
	case model.DisplayedCollapsed:
		return 2, nil
	}
	return 0, fmt.Errorf("store: unknown display status %d", int(d))
}

func displayFromCode(code int) (model.DisplayStatus, error) {
	switch code {
	case 0:
		return model.Hidden, nil
	case 1:
		return model.DisplayedNormal, nil
	case 2:
		return model.DisplayedCollapsed, nil
	}
	return model.Hidden, fmt.Errorf("store: unknown display code %d", code)
}

func originCode(o model.Origin) (int, error) {
	switch o {
	case model.PushObserved:
		return 0, nil
	case model.PollObserved:
		return 1, nil
	case model.FullyManual:
		return 2, nil
	}
	return 0, fmt.Errorf("store: unknown origin %d", int(o))
}

func originFromCode(code int) (model.Origin, error) {
	switch code {
	case 0:
		return model.PushObserved, nil
	case 1:
		return model.PollObserved, nil
	case 2:
		return model.FullyManual, nil
	}
	return model.PushObserved, fmt.Errorf("store: unknown origin code %d", code)
}
