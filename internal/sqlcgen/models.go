package sqlcgen

import "time"

type Preference struct {
	SessionID          string
	ZoomThreshold      int32
	LabelZoomThreshold int32
	Paused             bool
	SidebarCollapsed   bool
	UpdatedAt          time.Time
}
