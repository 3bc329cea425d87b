package types

// SocialShareInfo is the X/Twitter post extracted from a forwarded share email.
type SocialShareInfo struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	TweetID  string `json:"tweet_id"`
	Text     string `json:"text"`
	Date     string `json:"date"`
	EmailID  string `json:"email_id"`
}

// MailMessage is the subset of a Gmail message the share pipeline needs.
type MailMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Body    string `json:"body"`
	Snippet string `json:"snippet"`
	// InternalDate is milliseconds since the epoch as reported by Gmail.
	InternalDate int64 `json:"internal_date"`
}
