package models

// NewsItem is a single BWF news article as served by /api/bwf-news
type NewsItem struct {
	Title   string `json:"title"`
	Href    string `json:"href"`
	Img     string `json:"img,omitempty"`
	Preview string `json:"preview,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Post is a normalized Facebook post as served by /api/fb-feed
type Post struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Image    string `json:"image"`
	Date     string `json:"date"`
	Url      string `json:"url"`
	Category string `json:"category"`
	Lang     string `json:"lang,omitempty"`
}

// Channel identifies the resolved YouTube channel
type Channel struct {
	Id     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// Video is one upload of the channel, built per request
type Video struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	PublishedAt string `json:"publishedAt"`
}

type NewsResponse struct {
	Cached bool       `json:"cached"`
	Items  []NewsItem `json:"items"`
}

type PostsResponse struct {
	Cached bool   `json:"cached"`
	Items  []Post `json:"items"`
}

type VideosResponse struct {
	Channel Channel `json:"channel"`
	Videos  []Video `json:"videos"`
}

// Error bodies. Each keeps the list key so clients can always render an empty state.

type ErrorResponse struct {
	Error string `json:"error"`
}

type EmptyPostsResponse struct {
	Items []Post `json:"items"`
}

type VideosErrorResponse struct {
	Error   string  `json:"error"`
	Message string  `json:"message,omitempty"`
	Videos  []Video `json:"videos"`
}
