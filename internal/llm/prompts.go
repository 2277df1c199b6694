package llm

const analyzeSystem = "You are a helpful assistant that outputs strictly valid JSON."

const analyzePrompt = `You are a Senior Technical Editor. Analyze the following article content.

**Task**:
1. Determine the primary **Topic** from this list: [Generative AI, Robotics, Hardware/Chips, Industry/Business, Programming/Dev, Science/Research, Agi/Safety]. If none fit, use 'Other'.
2. Determine if it is **Recommended**:
   - YES for deep tech, research, insights.
   - NO for recruitment/jobs, generic ads, press releases without substance.
3. Provide a brief **Summary** (plain text).

**Output**: Strict JSON object, no markdown fences.
{
    "topic": "...",
    "recommended": true/false,
    "reason": "...",
    "summary": "..."
}

**Content**:
%s`

const synthesizeSystem = "You are a specific technical writer. You output ONLY Markdown content. No conversational fillers."

const synthesizePrompt = `You are a Senior Technical Editor.
**Goal**: Write a **cohesive, synthesized deep-dive report** on the topic **"%s"**, integrating information from the following source articles.

**Requirements**:
1. **Language**: Chinese (Simplified). Strict no-English rule unless for technical terms.
2. **Fusion**: Weave information into a single narrative. Do NOT list articles.
3. **Visuals**: Review "Available Images". If one matches, **insert it using Markdown**: ` + "`![Description](original_url)`" + `. Only use links from the list.
4. **Structure**:
   - **Introduction**: Context.
   - **Core Developments**: Main body (### Subheadings).
   - **Key Insights**: Bullet points.
5. **Output Format**: **Markdown ONLY**.
   - **CRITICAL**: Do NOT output "Okay", "Here is the report", or any conversational text.
   - Start directly with the first header or paragraph.

**Available Images**:
%s

**Source Material**:
%s`

const unifySystem = "You are a Chief Editor. Output Markdown only."

const unifyPrompt = `You are a Chief Editor for a top-tier tech publication.
**Goal**: Re-write and polish the following collection of topic reports into a single, cohesive Daily Digest.

**Requirements**:
1. **Tone**: Unified, professional, "Tech Crunch" or "Hacker News" style. Chinese (Simplified).
2. **Structure**: Keep the main topics as H2 or H1 headers. Use ` + "`---`" + ` to separate major sections.
3. **Images**: **CRITICAL**: You MUST preserve all image links ` + "`![Alt](url)`" + ` exactly as they are. Do NOT remove or modify URLs.
4. **Flow**: Smooth out transitions between topics. Remove repetitive intros if they sound redundant.
5. **Output**: **Markdown ONLY**. No conversational fillers.

**Draft Content**:
%s`

const titleSystem = "You are a creative editor."

const titlePrompt = `Generate a catchy, professional, and concise title for a daily AI technology digest covering the following topics:
%s

Requirements:
1. Language: Chinese (Simplified).
2. Style: Tech-forward, professional, engaging.
3. Length: Maximum 20 characters.
4. Format: Plain text, no quotes, no markdown.`
