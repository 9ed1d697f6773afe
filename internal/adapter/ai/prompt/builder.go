package prompt

import (
	"fmt"

	"github.com/prepforge/prepai/internal/domain"
)

// Builder composes the conversations for question generation, coding
// generation, answer generation, and answer analysis. All methods are
// pure; downstream parsing depends on the model honoring the JSON-only
// instructions, which it does not always do.
type Builder struct {
	classifier Classifier
}

// NewBuilder constructs a Builder with the given archetype classifier.
func NewBuilder(c Classifier) *Builder {
	if c == nil {
		c = NewKeywordClassifier()
	}
	return &Builder{classifier: c}
}

// ClassifyCompany exposes the archetype decision so callers can persist
// it alongside the session.
func (b *Builder) ClassifyCompany(company, description string) string {
	return b.classifier.Classify(company, description)
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}

// archetypeGuidelines returns the per-archetype interviewer guidance
// embedded in the question-generation prompt.
func archetypeGuidelines(companyType string) string {
	switch companyType {
	case domain.ArchetypeProduct:
		return `- Focus on system design, scalability, and architecture questions
- Include questions about product thinking and user experience
- Emphasize coding best practices and clean code principles
- Ask about handling large-scale systems and performance optimization
- Include questions about innovation and problem-solving approaches
- Deep OOP + Design Patterns + System Design
- OOP: Advanced applications like designing systems (e.g., parking lot, movie booking), SOLID principles, IS-A vs HAS-A
- DSA: Medium-Hard levels like sliding window, dynamic programming, graphs, trees, hashing
- JD Alignment: High, with focus on stack internals, optimization, integration`
	case domain.ArchetypeService:
		return `- Focus on client communication and project management skills
- Include questions about working with diverse technologies and frameworks
- Emphasize adaptability and learning new technologies quickly
- Ask about handling multiple projects and time management
- Include questions about working in team environments and collaboration
- OOP: Theoretical + Simple coding, e.g., encapsulation, abstraction, method overloading/overriding, access modifiers
- DSA: Beginner-Medium like sorting, searching, linked lists, stacks/queues, string problems
- JD Alignment: Medium, with basics in languages/databases mentioned, aptitude/logical questions
- Include aptitude, puzzles, basic SQL if relevant`
	case domain.ArchetypeStartup:
		return `- Focus on adaptability and wearing multiple hats
- Include questions about working in fast-paced, uncertain environments
- Emphasize ownership, initiative, and self-direction
- Ask about building from scratch and rapid prototyping
- Include questions about growth mindset and learning agility
- OOP: Applied in real-world coding, e.g., structuring classes for products, composition vs inheritance
- DSA: Easy-Medium like array/string manipulation, hashmaps, basic recursion, sorting/filtering
- JD Alignment: Very High, with practical features, debugging, quick implementation in their stack`
	default:
		return `- Focus on relevant technical skills and problem-solving abilities
- Include questions about teamwork and communication
- Emphasize continuous learning and professional development
- Ask about handling challenges and deadlines`
	}
}

// codingFocus returns the per-archetype focus block for the coding
// prompt.
func codingFocus(companyType string) string {
	switch companyType {
	case domain.ArchetypeProduct:
		return "- System design elements, scalability problems\n- Complex algorithms and optimization\n- Data structures for large-scale systems\n- Advanced problem-solving patterns\n- Medium-Hard DSA: sliding window, DP, graphs, trees, hashing\n- OOP mix: design patterns in problems"
	case domain.ArchetypeService:
		return "- Standard algorithms and data structures\n- Array, string, and tree problems\n- Basic dynamic programming\n- Practical coding scenarios\n- Easy-Medium DSA: sorting, searching, linked lists, stacks, queues\n- OOP basics in coding"
	default:
		return "- Fast problem-solving skills\n- Versatile coding abilities\n- Efficient algorithms\n- Real-world application problems\n- Easy-Medium DSA: arrays/strings, hashmaps, recursion, sorting\n- Applied OOP in practical scenarios"
	}
}

// QuestionGeneration builds the conversation requesting the 85-question
// interview batch (60 technical, 25 behavioral, with difficulty
// sub-splits), steered by the company archetype.
func (b *Builder) QuestionGeneration(jobTitle, company, description, requirements, resume string) domain.Conversation {
	companyType := b.classifier.Classify(company, description)

	user := fmt.Sprintf(`Generate 85 unique interview questions tailored specifically for the role of %s at %s (%s). Base the questions directly on the provided job description, key requirements (skills/technologies), and candidate's resume. Extract key skills, technologies, experiences, and responsibilities from the job description, requirements, and resume. Ensure questions cover these areas proportionally and are diverse. Avoid generic questions; make them relevant to the mentioned skills (e.g., if React and Node.js are in requirements/resume, include specific questions on React hooks, Node.js async patterns). Align with company type patterns, focusing on OOP concepts, DSA levels, and JD alignment as per guidelines. Do not repeat questions across different roles or generate the same set.

Job Details:
- Title: %s
- Company: %s (%s)
- Description: %s
- Requirements/Key Skills: %s
- Resume/Experience: %s

Return ONLY a JSON array with 85 questions:
- 60 technical questions (20 easy, 20 medium, 20 hard) – Categorize based on key skills (e.g., "React", "SQL", "DSA: Graphs")
- 25 behavioral questions (8 easy, 9 medium, 8 hard) – Tie to resume experiences and job responsibilities

Format:
[
  {"question": "Question text", "type": "technical", "difficulty": "Easy", "category": "React"},
  {"question": "Question text", "type": "behavioral", "difficulty": "Medium", "category": "Leadership"}
]

Company focus for %s:
%s

Generate realistic, commonly-asked questions that directly align with the JD skills, resume experiences, OOP (core/advanced as per type), DSA (level as per type), and best practices. Prioritize questions that match patterns for the company type (e.g., system design for product-based, fundamentals for service-based, practical for startups). Ensure diversity and relevance to avoid repetition. Return only the JSON array, no other text.`,
		jobTitle, company, companyType,
		jobTitle, company, companyType,
		orNotProvided(description), orNotProvided(requirements), orNotProvided(resume),
		companyType, archetypeGuidelines(companyType))

	return domain.Conversation{
		{Role: domain.RoleSystem, Content: "You are an expert interviewer specializing in tailoring questions to specific job descriptions, key skills, and resumes. Generate unique, diverse questions based on provided details. Return only valid JSON arrays of interview questions. No explanations, no markdown formatting."},
		{Role: domain.RoleUser, Content: user},
	}
}

// Coding builds the conversation requesting the 30-problem coding
// batch for the given archetype.
func (b *Builder) Coding(jobTitle, company, companyType string) domain.Conversation {
	user := fmt.Sprintf(`You are an expert coding interviewer who knows the most commonly asked coding questions. Generate 30 coding/DSA questions that are frequently asked in interviews for %s at %s companies like %s. Questions must be based on typical patterns for the company type, with focus on DSA levels, OOP integration where relevant, and best match to common problems.

Company Type Focus for %s:
%s

For each question, provide:
1. title: The question title
2. difficulty: Easy/Medium/Hard (distribute evenly)
3. category: The main topic (Array, String, Tree, Graph, DP, etc.)
4. description: Brief description of the problem
5. platform: "leetcode" or "geeksforgeeks"
6. url: The actual URL to the problem (use real LeetCode/GFG URLs)
7. tags: Array of relevant tags

Return as JSON array with this format:
[
  {
    "title": "Two Sum",
    "difficulty": "Easy",
    "category": "Array",
    "description": "Find two numbers that add up to target",
    "platform": "leetcode",
    "url": "https://leetcode.com/problems/two-sum/",
    "tags": ["array", "hash-table"]
  }
]

Generate popular, frequently-asked questions that have high probability of appearing in actual interviews, matching the company type patterns.`,
		jobTitle, companyType, company, companyType, codingFocus(companyType))

	return domain.Conversation{
		{Role: domain.RoleSystem, Content: "You are an expert coding interviewer who generates realistic, frequently-asked coding questions. Always respond with valid JSON only."},
		{Role: domain.RoleUser, Content: user},
	}
}

// Answer builds the conversation requesting a model answer for one
// question, with behavioral (story) vs technical (definition + code)
// framing.
func (b *Builder) Answer(question, jobTitle, resume, questionType string) domain.Conversation {
	var framing string
	if questionType == domain.QuestionBehavioral {
		framing = `
For behavioral questions, tell a brief story about a challenge or situation. Focus on what YOU did, the result, and any lesson learned. Keep it natural and conversational. Include simple points if needed but avoid long lists. Use metrics or impact statements if relevant. Example: "I noticed our deployment process was slow, so I automated tests and reduced errors, which cut release time by 20%. It taught me the value of proactive problem-solving."`
	} else {
		framing = `
For technical questions, give a short definition or concept explanation. Provide a properly formatted code snippet that can be copy-pasted, like:

const person = {
  name: "Alice",
  greet: function() {
    console.log("Hello, my name is " + this.name);
  }
};
person.greet(); // Output: Hello, my name is Alice

Then mention key considerations, best practices, or trade-offs in a short paragraph. Keep it concise, clear, and easy to recall.`
	}

	user := fmt.Sprintf(`You are an expert interview coach. Generate a natural, concise, and memorable answer for this %s interview question. Make it flow like a human speaking, with short paragraphs. You can include 1-2 simple points in behavioral answers if it makes it easier to remember. For technical answers, include a properly formatted, short code snippet that can be used directly. Keep everything easy to recall and professional.

Question: %s
Job Title: %s
Candidate's Resume: %s
%s

Formatting rules:
- Natural, conversational paragraphs
- Short and concise
- Logical flow
- Confident, professional tone
- End with an impact or takeaway`,
		questionType, question, jobTitle, resume, framing)

	return domain.Conversation{
		{Role: domain.RoleSystem, Content: "You are an expert interview coach generating concise, natural, professional answers. Include short code snippets for technical answers that are properly formatted and usable directly."},
		{Role: domain.RoleUser, Content: user},
	}
}

// Analysis builds the conversation requesting a Feedback object for a
// (question, answer) pair.
func (b *Builder) Analysis(question, userAnswer, jobTitle string) domain.Conversation {
	user := fmt.Sprintf(`You are an expert interviewer evaluating a candidate's answer. Analyze this interview response:

Question: %s
Job Title: %s
Candidate's Answer: %s

Provide a detailed analysis with:
1. Score (1-10 scale)
2. 2-4 specific strengths of the answer
3. 2-4 areas for improvement
4. An improved version of the answer that addresses the weaknesses

Return the response as JSON with this exact format:
{
  "score": 7,
  "strengths": ["Strength 1", "Strength 2"],
  "improvements": ["Improvement 1", "Improvement 2"],
  "improvedAnswer": "The improved answer text here..."
}

Be constructive and specific in your feedback. Focus on:
- Clarity and structure
- Technical accuracy (if applicable)
- Use of examples
- Confidence and professionalism
- Completeness of the response

IMPORTANT: Ensure your JSON response is properly formatted with all strings properly terminated.`,
		question, jobTitle, userAnswer)

	return domain.Conversation{
		{Role: domain.RoleSystem, Content: "You are an expert interviewer who provides detailed, constructive feedback on interview answers. Always respond with valid JSON only. Ensure all strings are properly terminated and the JSON is valid."},
		{Role: domain.RoleUser, Content: user},
	}
}
