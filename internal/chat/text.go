package chat

import "fmt"

// ApologyText replaces the reply when a chat request fails.
const ApologyText = "😔 Sorry, I couldn't connect to the server. Make sure the backend is running!"

// WelcomeText opens every conversation.
const WelcomeText = `🏠 Welcome to Mangalore's Smartest Property Assistant!

I learn from our conversation to help you find the right property:

🤖 **Intelligent Suggestions** - I look at your preferences and suggest what you might need next
🗺️ **Location Intelligence** - I can show nearby schools, hospitals and malls around any property
📊 **Smart Filtering** - I learn what matters most to you and prioritize accordingly

**Quick Start:**
• "2BHK under 100 lakhs in Kadri"
• "Properties with swimming pool and gym"
• "Show me family-friendly properties"
• "Find schools near NorthernSky City"

What kind of property are you looking for? 😊`

// StarterSuggestions accompany the welcome message.
var StarterSuggestions = []string{
	"Show all available properties 🏠",
	"I'm looking for a family home 👨‍👩‍👧‍👦",
	"Investment properties under ₹1 Cr 💰",
	"Properties near tech parks 💻",
}

// AskAboutQuery is the text sent by the "ask about" actions.
func AskAboutQuery(name string) string {
	return fmt.Sprintf("Tell me about %s", name)
}

// DetailsQuery is the text sent by a property card's Details action.
func DetailsQuery(name string) string {
	return fmt.Sprintf("Tell me more details about %s", name)
}
