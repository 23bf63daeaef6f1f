package models

// BaselinePosts are the posts a fresh site starts with.
func BaselinePosts() []NewPost {
	return []NewPost{
		{
			Title:      "Welcome to My Blog",
			Content:    "This is my first blog post! I’m excited to share my thoughts and community updates with you.",
			Type:       "Blog",
			Categories: []string{"Welcome"},
			Tags:       []string{"intro"},
			Author:     DefaultAuthor,
		},
		{
			Title:      "Community Festival Announced",
			Content:    "Join us for the annual community festival on May 15th! There will be food, music, and fun activities for all ages.",
			Type:       "News",
			Categories: []string{"Events"},
			Tags:       []string{"festival"},
			Author:     DefaultAuthor,
		},
	}
}
