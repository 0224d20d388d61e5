package analysis

import (
	"fmt"

	"github.com/edgard/telellmgram/internal/chunk"
	"github.com/edgard/telellmgram/internal/corpus"
)

// TrendRequestFmt is the synthesized trend question; %s is the media name.
const TrendRequestFmt = "لطفا ترند ها و موضوعات داغ رسانه %s را از درون محتوای آن استخراج کن و آنها را لیست کن . "

func singleHeader(kind corpus.MediaKind, question string) string {
	return fmt.Sprintf("I want you to perform a telegram analysis based on an input prompt. Below is first the input prompt and then the "+
		"messages sent to that media. The media is infact a telegram %s. The messages might be a chunk of all messages. "+
		"I truncated to prevent a long input.\n"+
		"Each row is a message sent to this %s. The format of input in each row is like this:\n"+
		"Message : message_id--message_text--reactions_to_message\n\n"+
		"**User prompt : %s **\n\nMessages:", kind, kind, question)
}

func singleLine(r corpus.MessageRecord) string {
	return "Message : " + chunk.Line(r)
}

func singleClosing(words int, language string) string {
	return fmt.Sprintf("**Please perform the request analysis in maximum %d words in one %s language paragraph**.", words, language)
}

func singleReduceHeader(kind corpus.MediaKind, question string) string {
	return fmt.Sprintf("I want to perform an analysis on a telegram %s. Below is first the required analysis and then the partial analysis.\n\n"+
		"** User required analysis : %s **\n\nAnd below are the partial analysis which have been already performed on various data of this media.\n\n"+
		"Partial analysis:", kind, question)
}

func singleReduceClosing(words int, language string) string {
	return fmt.Sprintf("**Please conclude these partial analysis into a final and complete one and write a paragraph of maximum %d words in %s.**", words, language)
}

func topicHeader(name, question string) string {
	return fmt.Sprintf("I want you to perform an anlysis on a telegram media called: %s based on a user input prompt and some selected "+
		"content/messages sent to this media.\n\n**User prompt: %s**\n\nMessages:", name, question)
}

func topicClosing(words int, language string) string {
	return fmt.Sprintf("**Please perform the requested analysis in one %s paragraph in maximum %d words.**", language, words)
}

func topicReduceHeader(question string) string {
	return fmt.Sprintf("I want you to conclude a requested analysis based on a user prompt. Below is first the user prompt (requested analysis) "+
		"and then the partial analysis. Each partial analysis is the result of the analysis of the same prompt, but for a specific media, "+
		"named in brackets. I want you to conclude all these analysis and produce the final response to the prompt based on these partial analysis.\n\n"+
		"**User prompt: %s**\n\nPartial analysis:", question)
}

func topicReduceClosing(words int, language string) string {
	return fmt.Sprintf("Please write a paragraph in %s language with maximum %d words.", language, words)
}

func windowHeader(question string) string {
	return fmt.Sprintf("I want you to perform an analysis on a telegram media based on a user input prompt (requested analysis) and the content/messages sent to "+
		"that media. The main goal is to determine what were the topics people usually talked about in telegram during a time period. Below is first the user prompt "+
		"and then the messages sent to the target media.\n\n**User prompt: %s**\n\nMessages:", question)
}

func windowClosing(words int, language string) string {
	return fmt.Sprintf("**Now please do the analysis the user want in one %s paragraph with maximum %d words**", language, words)
}

func windowReduceHeader(question string) string {
	return fmt.Sprintf("I want you to perform an analysis on a telegram media based on a user prompt and partial result. The partial results are the same analysis but on a "+
		"smaller part of the whole data. I want you to conclude these partial results and tell what were the messages usually about in the target media. Below is first the "+
		"user prompt and then the partial analysis:\n\n**User prompt: %s**", question)
}

func windowReduceClosing(words int, language string) string {
	return fmt.Sprintf("**Please perform the requested analysis in one %s paragraph with maximum %d words.**", language, words)
}

func trendReduceClosing(language string) string {
	return fmt.Sprintf("**Please detect the trend and hot topics based on the contents and finally list them. Your output must be in %s language**", language)
}

func individualHeader(question string) string {
	return fmt.Sprintf("I want you to analyse person by the messages he/she has sent to a telegram group based on a user input prompt. Below is "+
		"first the user prompt and then the messages this user has sent to the group.\n\n**User prompt: %s**\n\nMessages of this person:", question)
}

func individualClosing(words int, language string) string {
	return fmt.Sprintf("**Please perform the required analysis on this user in one %s Paragraph with maximum %d words**", language, words)
}

func individualReduceHeader(question string) string {
	return fmt.Sprintf("I want you to analyse a person of a telegram group. Below is first the user prompt and then partial analyses, each made on "+
		"a part of the messages this person has sent.\n\n**User prompt: %s**\n\nPartial analysis:", question)
}
