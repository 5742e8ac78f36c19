package model

import "time"

// Snapshot はリーダーストアの永続化可能な状態を表す。
// 一時状態（取得中フラグ、プロフィール）は含まない。
type Snapshot struct {
	Contents           []Content
	Creators           []Creator
	FollowedList       []string
	BookmarkList       []string
	FollowingCreators  []string
	UnfollowedCreators []string
	SavedAt            time.Time
}

// IsEmpty はスナップショットに実体が1件も含まれないかを返す。
func (s *Snapshot) IsEmpty() bool {
	return len(s.Contents) == 0 && len(s.Creators) == 0
}
