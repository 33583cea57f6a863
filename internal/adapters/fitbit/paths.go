package fitbit

import (
	"fmt"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

// RequestPath maps one gateway request to exactly one upstream resource path.
func RequestPath(req domain.UpstreamRequest) (string, error) {
	if req.Family == domain.FamilyProfile {
		return "/1/user/-/profile.json", nil
	}
	if req.Range == nil {
		return "", fmt.Errorf("fitbit: %s request without a date", req.Family)
	}

	start, end := req.Range.StartString(), req.Range.EndString()
	single := req.Range.IsSingleDay()

	switch req.Family {
	case domain.FamilyActivity:
		if single {
			return fmt.Sprintf("/1/user/-/activities/date/%s.json", start), nil
		}
		return fmt.Sprintf("/1/user/-/activities/activityCalories/date/%s/%s.json", start, end), nil
	case domain.FamilyHeart:
		if single {
			return fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d.json", start), nil
		}
		return fmt.Sprintf("/1/user/-/activities/heart/date/%s/%s.json", start, end), nil
	case domain.FamilySleep:
		if single {
			return fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", start), nil
		}
		return fmt.Sprintf("/1.2/user/-/sleep/date/%s/%s.json", start, end), nil
	}

	return "", fmt.Errorf("%w: %q", domain.ErrUnknownFamily, req.Family)
}
