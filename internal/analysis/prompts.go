package analysis

import (
	"fmt"
	"strings"

	"github.com/kalambet/ttyv/internal/store"
)

const comprehensiveTemplate = `Summarize the key points and main ideas from the following YouTube video transcript: %s

Provide a comprehensive and informative summary, focusing on factual information from the transcript.

Specifically, address the following aspects:

* **Main Topic:** What is the central subject of the video?
* **Key Arguments/Points:** What are the core arguments or points presented? Provide sufficient detail for each.
* **Supporting Evidence/Examples:** What evidence, examples, or data are used to support these arguments?
* **Important Details/Nuances:** Are there any crucial details, exceptions, or qualifications necessary for a complete understanding?
* **Overall Conclusion/Takeaway:** What is the main conclusion or takeaway message conveyed in the video?

**Instructions:**

* Use only factual information from the transcript. Do not add information from external sources or speculate.
* Be comprehensive. Aim for a detailed summary that captures the essence of the video, even if it means the summary is not extremely brief. Prioritize information over brevity.
* Organize the summary logically and use clear, concise language.`

const executiveTemplate = `Create an executive summary of the following YouTube video transcript: %s

Provide a concise, professional summary suitable for executives or busy professionals. Include:

* **Executive Overview:** 2-3 sentence summary of the main topic
* **Key Insights:** 3-5 most important points or findings
* **Business Implications:** Any relevant business or practical applications
* **Action Items:** What viewers should do with this information

Keep it under 300 words and focus on actionable insights.`

const bulletPointsTemplate = `Create a bullet-point summary of the following YouTube video transcript: %s

Format as clear, concise bullet points organized by:

**Main Topic:**
• [Brief description]

**Key Points:**
• [Point 1]
• [Point 2]
• [Point 3]
• [etc.]

**Important Details:**
• [Detail 1]
• [Detail 2]
• [etc.]

**Conclusion:**
• [Main takeaway]

Use clear, concise language and focus on the most important information.`

const keyTopicsTemplate = `Analyze the following YouTube video transcript and extract key topics: %s

Identify and organize the content by main topics:

**Topic 1: [Topic Name]**
- Key points discussed
- Important details

**Topic 2: [Topic Name]**
- Key points discussed
- Important details

**Topic 3: [Topic Name]**
- Key points discussed
- Important details

**Cross-cutting Themes:**
- Themes that appear across multiple topics

Focus on organizing information thematically for easy reference.`

// SummaryPrompt builds the generation prompt for one summary variant.
// Unknown variants fall back to the comprehensive template.
func SummaryPrompt(variant, transcript string) string {
	switch variant {
	case VariantExecutive:
		return fmt.Sprintf(executiveTemplate, transcript)
	case VariantBulletPoints:
		return fmt.Sprintf(bulletPointsTemplate, transcript)
	case VariantKeyTopics:
		return fmt.Sprintf(keyTopicsTemplate, transcript)
	default:
		return fmt.Sprintf(comprehensiveTemplate, transcript)
	}
}

const topicsTemplate = `Analyze the following YouTube video transcript and extract the %d most important topics or themes: %s

For each topic, provide:
- A clear, concise topic name (2-4 words)
- A brief description (1-2 sentences)

Format your response as:
**Topic 1: [Topic Name]**
[Brief description]

**Topic 2: [Topic Name]**
[Brief description]

Focus on the main themes, concepts, or subjects discussed in the video.`

// TopicsPrompt builds the prompt that extracts n key topics from the
// full transcript.
func TopicsPrompt(chunks []store.Chunk, n int) string {
	if n <= 0 {
		n = DefaultTopicCount
	}
	return fmt.Sprintf(topicsTemplate, n, JoinChunks(chunks, 0))
}

const questionsTemplate = `Based on the following YouTube video transcript, generate %d thoughtful and relevant questions that viewers might want to ask about the content: %s

Generate questions that:
1. Cover different aspects of the content
2. Range from basic understanding to deeper analysis
3. Are specific to the video content
4. Would help viewers learn more about the topic

Format your response as a numbered list:
1. [Question 1]
2. [Question 2]
3. [Question 3]
4. [Question 4]
5. [Question 5]

Make each question clear, specific, and engaging.`

// QuestionsPrompt builds the prompt that suggests n viewer questions.
// Only the leading chunks are used; questions need the video's framing,
// not its whole body.
func QuestionsPrompt(chunks []store.Chunk, n int) string {
	if n <= 0 {
		n = DefaultQuestionCount
	}
	return fmt.Sprintf(questionsTemplate, n, JoinChunks(chunks, questionChunkBudget))
}

const sentimentTemplate = `Analyze the sentiment and tone of the following YouTube video transcript: %s

Provide analysis on:

**Overall Sentiment:**
- Positive, Negative, or Neutral
- Confidence level (High/Medium/Low)

**Emotional Tone:**
- Describe the general emotional tone (e.g., enthusiastic, serious, conversational, educational, etc.)

**Speaker Attitude:**
- How does the speaker appear to feel about the topic?

**Content Mood:**
- Is the content uplifting, concerning, informative, entertaining, etc.?

**Key Emotional Indicators:**
- Specific words or phrases that indicate the sentiment

Keep the analysis objective and based solely on the transcript content.`

// SentimentPrompt builds the prompt that characterizes the video's tone
// from its opening chunks.
func SentimentPrompt(chunks []store.Chunk) string {
	return fmt.Sprintf(sentimentTemplate, JoinChunks(chunks, sentimentChunkBudget))
}

const contextOnlyChatTemplate = `You are a helpful and informative bot designed to answer questions based on the provided context. Your goal is to provide comprehensive and easy-to-understand answers, even to non-technical audiences.

**Question:** '%s'

**Context:** '%s'

**Instructions:**

1. **Answer completely and comprehensively:** Provide a full and detailed answer to the question, drawing upon all relevant information from the context. Don't just give short, surface-level responses.

2. **Explain clearly and simply:** Break down complex concepts into simpler terms that a non-technical audience can understand. Use clear, concise language and avoid jargon or technical terms whenever possible. Provide examples or analogies if they would be helpful.

3. **Maintain a friendly and conversational tone:** Write your answer in a friendly and approachable way. Use a conversational style as if you were explaining the topic to a friend.

4. **Use only the provided context:** Base your answer *exclusively* on the information given in the context. Do not include information from other sources or speculate. If the context doesn't contain the information needed to answer the question, simply state, "%s"

5. **Structure your response logically:** Organize your answer in a clear and logical way, making it easy for the reader to follow your explanation. Use headings, bullet points, or numbered lists if appropriate.

**Answer:**`

const externalChatTemplate = `You are a helpful and informative bot designed to answer questions using your general knowledge and external information, while also considering and integrating relevant details from the provided context. Your goal is to provide comprehensive and easy-to-understand answers, even to non-technical audiences.

**Question:** '%s'

**Context:** '%s'

**Instructions:**

1. **Answer comprehensively using external knowledge:** Provide a full and detailed answer to the question, drawing primarily from your own knowledge base and external information. Go beyond the context provided and offer additional relevant details.

2. **Integrate relevant context:** Carefully review the provided context and incorporate any relevant information into your answer. Explain how the context relates to the broader topic and how it supports or contrasts with your external knowledge.

3. **Explain clearly and simply:** Break down complex concepts into simpler terms that a non-technical audience can understand. Use clear, concise language and avoid jargon or technical terms whenever possible.

4. **Maintain a friendly and conversational tone:** Write your answer in a friendly and approachable way. Use a conversational style as if you were explaining the topic to a friend.

5. **Acknowledge the context:** In your answer, explicitly acknowledge that you have considered the provided context.

6. **Structure your response logically:** Organize your answer in a clear and logical way. Use headings, bullet points, or numbered lists if appropriate.

7. **Handle irrelevant context gracefully:** If the context is not relevant to the question, briefly acknowledge it rather than ignoring it entirely.

**Answer:**`

// ChatPrompt builds the question-answering prompt. In context-only mode
// the model is instructed to refuse with NoAnswerText when the context
// does not contain the answer; in external mode it may draw on general
// knowledge while still weaving the context in.
func ChatPrompt(question, context string, useExternal bool) string {
	if useExternal {
		return fmt.Sprintf(externalChatTemplate, question, context)
	}
	return fmt.Sprintf(contextOnlyChatTemplate, question, context, NoAnswerText)
}

const comparisonInstructions = `
**Comparison Analysis Instructions:**

1. **Content Comparison:** Compare the main topics, themes, and key points discussed in each video.

2. **Approach Analysis:** How do the creators approach their subjects differently?

3. **Sentiment Comparison:** Compare the emotional tone and sentiment across videos.

4. **Depth & Quality:** Evaluate the depth of coverage and quality of information.

5. **Target Audience:** Identify the intended audience for each video.

6. **Unique Insights:** What unique perspectives or insights does each video offer?

7. **Complementary Content:** How do these videos complement each other?

8. **Recommendations:** Which video would you recommend for different types of viewers and why?

**Format your response with clear sections:**
- **Overview Summary**
- **Content Comparison**
- **Approach & Style Analysis**
- **Sentiment Analysis**
- **Quality Assessment**
- **Audience Targeting**
- **Unique Value Propositions**
- **Complementary Insights**
- **Recommendations**`

// ComparisonPrompt builds the synthesis prompt over the collected member
// summaries. Long member fields are clipped so a handful of videos never
// blows the prompt out.
func ComparisonPrompt(members []store.MemberSummary, aspects []string, depth string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert content analyst. Compare the following %d YouTube videos based on these aspects: %s.\n\nAnalysis Depth: %s\n\nVideos to Compare:\n",
		len(members), strings.Join(aspects, ", "), depth)

	for i, m := range members {
		fmt.Fprintf(&sb, "\n**Video %d: %s**\n- Channel: %s\n- URL: %s\n- Summary: %s\n- Topics: %s\n- Sentiment: %s\n",
			i+1,
			orUnknown(m.Title, "Unknown Title"),
			orUnknown(m.Author, "Unknown"),
			m.URL,
			clip(orUnknown(m.Summary, "No summary available"), 300),
			clip(orUnknown(strings.Join(m.Topics, ", "), "No topics available"), 200),
			clip(orUnknown(m.Sentiment, "No sentiment analysis"), 150))
	}

	sb.WriteString(comparisonInstructions)
	return sb.String()
}

const trendInstructions = `
**Trend Analysis Instructions:**

1. **Topic Evolution:** How have the main topics evolved over the analyzed period/grouping?

2. **Sentiment Trends:** What sentiment patterns emerge across the videos?

3. **Content Depth Trends:** How has the depth and complexity of content changed?

4. **Engagement Patterns:** What patterns can you identify in how content is presented?

5. **Emerging Themes:** What new themes or topics are emerging?

6. **Declining Themes:** What topics are becoming less prominent?

7. **Consistency Patterns:** What remains consistent across the videos?

8. **Innovation Trends:** How are creators innovating in their approach?

9. **Audience Adaptation:** How is content adapting to audience preferences?

10. **Future Predictions:** Based on these trends, what might we expect to see next?

**Format your response with clear sections:**
- **Trend Overview**
- **Topic Evolution Analysis**
- **Sentiment Trend Patterns**
- **Content Quality Trends**
- **Emerging vs Declining Themes**
- **Future Trend Predictions**
- **Key Insights & Recommendations**`

// TrendPrompt builds the synthesis prompt over grouped member summaries.
// order fixes the group iteration so the prompt is deterministic.
func TrendPrompt(groups map[string][]store.MemberSummary, order []string, timeframe string, aspects []string, grouping string) string {
	var sb strings.Builder
	total := 0
	for _, name := range order {
		total += len(groups[name])
	}
	fmt.Fprintf(&sb, "You are an expert trend analyst. Analyze trends across these %d YouTube videos based on:\n- Time Period: %s\n- Aspects: %s\n- Grouping Method: %s\n\nVideos for Trend Analysis:\n",
		total, timeframe, strings.Join(aspects, ", "), grouping)

	for _, name := range order {
		members := groups[name]
		fmt.Fprintf(&sb, "\n**%s** (%d videos):\n", name, len(members))
		for _, m := range members {
			fmt.Fprintf(&sb, "- %s\n  Topics: %s\n  Sentiment: %s\n",
				clip(orUnknown(m.Title, "Unknown"), 100),
				clip(strings.Join(m.Topics, ", "), 150),
				clip(m.Sentiment, 100))
		}
	}

	sb.WriteString(trendInstructions)
	return sb.String()
}

const insightsTemplate = `Based on the trend analysis of %d videos, generate 5-10 key actionable insights that would be valuable for:
- Content creators
- Marketers
- Researchers
- Business strategists

Trend Analysis Data:
%s

Generate insights that are:
1. Specific and actionable
2. Based on observable patterns
3. Useful for decision-making
4. Forward-looking when possible

Format as a numbered list with brief explanations.`

// InsightsPrompt builds the prompt that distills actionable insights out
// of a finished trend analysis.
func InsightsPrompt(trendAnalysis string, videoCount int) string {
	return fmt.Sprintf(insightsTemplate, videoCount, clip(trendAnalysis, 1000))
}
