package dialogue

// Conversational surface texts. The dialogue engine is language-agnostic;
// everything participant-facing lives here.
const (
	greetingText = "Привет! Меня зовут %s. Я здесь, чтобы помочь тебе с помощью арт-терапии через музыку.\nКак тебя зовут?"

	menuText      = "Выбери, с чего начнём."
	menuNamedText = "Очень приятно, %s! Выбери, с чего начнём."

	farewellText = "Приятно было с вами общаться!\nСпасибо за то, что воспользовались ботом!"

	nothingFoundText = "В системе ничего не найдено"

	escalationText = "Мне очень жаль, что тебе сейчас так тяжело. Пожалуйста, не оставайся с этим наедине — поговори с близким человеком или со специалистом. Бесплатная линия психологической помощи: 8-800-2000-122."

	chooseNextText = "Вопросы закончились. Выбери, что делать дальше."

	closingText = "Это был последний вопрос. Могу собрать для тебя плейлист по твоим ответам."

	titlePromptText = "Как назовём твой плейлист?"
	titleSavedText  = "Готово! Плейлист «%s» сохранён."
	noTunesText     = "Пока не получилось подобрать мелодии по твоим ответам."

	saveTunesLabel    = "Собрать плейлист"
	saveTunesCallback = "save-playlist"
)
