package game

var defaultTruths = []string{
	"What's the most embarrassing thing that happened to you on a trip?",
	"What's your biggest fear about this trip?",
	"What's the weirdest food you've ever eaten?",
	"What's your most irrational fear?",
	"What's the most trouble you've ever been in?",
	"What's your biggest pet peeve about traveling with others?",
	"What's the most embarrassing thing in your search history?",
	"What's your biggest regret from high school?",
	"What's the most childish thing you still do?",
	"What's your biggest insecurity?",
	"What's the most embarrassing thing you've done to impress someone?",
	"What's your biggest guilty pleasure?",
	"What's the most embarrassing thing you've ever worn?",
	"What's your biggest fear about the future?",
	"What's the most embarrassing thing you've ever said in public?",
}

var defaultDares = []string{
	"Call your mom and tell her you're getting married tomorrow",
	"Let someone in the group style your hair however they want",
	"Do your best impression of someone in the group",
	"Sing your favorite song at the top of your lungs",
	"Dance like nobody's watching for 2 minutes",
	"Let someone in the group post something on your social media",
	"Wear your clothes backwards for the next hour",
	"Speak in a different accent for the next 10 minutes",
	"Let someone in the group choose your next meal",
	"Do 20 jumping jacks right now",
	"Let someone in the group take a silly photo of you",
	"Tell a joke that makes everyone laugh",
	"Let someone in the group choose your outfit for tomorrow",
	"Do your best animal impression",
	"Let someone in the group give you a new nickname for the rest of the trip",
}
